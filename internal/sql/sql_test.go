package sql

import (
	"testing"
	"time"

	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type catalogFixture struct {
	fiat, bmw      models.Brand
	city, suv      models.Category
	panda, x1, old models.Vehicle
}

func seedCatalog(t *testing.T, db *gorm.DB) catalogFixture {
	t.Helper()
	f := catalogFixture{
		fiat: models.Brand{Name: "Fiat", Slug: "fiat"},
		bmw:  models.Brand{Name: "BMW", Slug: "bmw"},
		city: models.Category{Name: "City car", Slug: "city-car"},
		suv:  models.Category{Name: "SUV", Slug: "suv"},
	}
	require.NoError(t, db.Create(&f.fiat).Error)
	require.NoError(t, db.Create(&f.bmw).Error)
	require.NoError(t, db.Create(&f.city).Error)
	require.NoError(t, db.Create(&f.suv).Error)

	f.panda = models.Vehicle{
		BrandID: f.fiat.ID, CategoryID: f.city.ID, Model: "Panda", Year: 2024,
		Fuel: models.FuelHybrid, Transmission: models.TransmissionManual, Published: true,
		PricingOptions: []models.RentalPricingOption{
			{DurationMonths: 36, MileagePerYear: 10000, MonthlyPriceCents: 19900, IsDefault: true},
			{DurationMonths: 48, MileagePerYear: 15000, MonthlyPriceCents: 17900},
		},
	}
	f.x1 = models.Vehicle{
		BrandID: f.bmw.ID, CategoryID: f.suv.ID, Model: "X1", Year: 2024,
		Fuel: models.FuelDiesel, Transmission: models.TransmissionAutomatic, Published: true,
		PricingOptions: []models.RentalPricingOption{
			{DurationMonths: 36, MileagePerYear: 15000, MonthlyPriceCents: 49900},
		},
	}
	f.old = models.Vehicle{
		BrandID: f.fiat.ID, CategoryID: f.city.ID, Model: "Punto", Year: 2018,
		Fuel: models.FuelPetrol, Transmission: models.TransmissionManual, Published: false,
	}
	require.NoError(t, db.Create(&f.panda).Error)
	require.NoError(t, db.Create(&f.x1).Error)
	require.NoError(t, db.Create(&f.old).Error)
	return f
}

func vehicleModels(vehicles []models.Vehicle) []string {
	names := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		names = append(names, v.Model)
	}
	return names
}

func TestListVehicles(t *testing.T) {
	db := tests.NewSQLiteDB(t)
	seedCatalog(t, db)

	t.Run("should hide unpublished vehicles from the catalog", func(t *testing.T) {
		vehicles, total, err := ListVehicles(db, models.VehicleListQueryParams{}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.ElementsMatch(t, []string{"Panda", "X1"}, vehicleModels(vehicles))
	})

	t.Run("should include unpublished vehicles for admins", func(t *testing.T) {
		_, total, err := ListVehicles(db, models.VehicleListQueryParams{}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("should filter by brand and category slug", func(t *testing.T) {
		vehicles, _, err := ListVehicles(db, models.VehicleListQueryParams{Brand: "bmw"}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"X1"}, vehicleModels(vehicles))

		vehicles, _, err = ListVehicles(db, models.VehicleListQueryParams{Category: "city-car"}, false)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Panda", "Punto"}, vehicleModels(vehicles))
	})

	t.Run("should filter by fuel, transmission and price", func(t *testing.T) {
		vehicles, _, err := ListVehicles(db, models.VehicleListQueryParams{Fuel: "diesel"}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"X1"}, vehicleModels(vehicles))

		vehicles, _, err = ListVehicles(db, models.VehicleListQueryParams{Transmission: "manual"}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"Panda"}, vehicleModels(vehicles))

		vehicles, _, err = ListVehicles(db, models.VehicleListQueryParams{MaxPrice: 18000}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"Panda"}, vehicleModels(vehicles))
	})

	t.Run("should paginate and preload relations", func(t *testing.T) {
		vehicles, total, err := ListVehicles(db, models.VehicleListQueryParams{Page: 2, PageSize: 1}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, vehicles, 1)
		assert.NotNil(t, vehicles[0].Brand)
		assert.NotNil(t, vehicles[0].Category)
	})

	t.Run("should order pricing options by price", func(t *testing.T) {
		vehicles, _, err := ListVehicles(db, models.VehicleListQueryParams{Brand: "fiat"}, true)
		require.NoError(t, err)
		require.Len(t, vehicles, 1)
		require.Len(t, vehicles[0].PricingOptions, 2)
		assert.Equal(t, int64(17900), vehicles[0].PricingOptions[0].MonthlyPriceCents)
		assert.Equal(t, int64(19900), vehicles[0].DefaultPricing().MonthlyPriceCents)
	})
}

func TestGetVehicleByID(t *testing.T) {
	db := tests.NewSQLiteDB(t)
	f := seedCatalog(t, db)

	t.Run("should return 404 for unpublished vehicles on the catalog", func(t *testing.T) {
		_, err := GetVehicleByID(db, f.old.ID, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "VEHICLE_NOT_FOUND")

		vehicle, err := GetVehicleByID(db, f.old.ID, false)
		require.NoError(t, err)
		assert.Equal(t, "Punto", vehicle.Model)
	})
}

func TestPagination(t *testing.T) {
	page, size := Pagination(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, configuration.DefaultPageSize, size)

	_, size = Pagination(3, 1000)
	assert.Equal(t, configuration.MaxPageSize, size)
}

func TestConsumeBackupCode(t *testing.T) {
	db := tests.NewSQLiteDB(t)

	codes := []string{"AAAA-1111", "BBBB-2222"}
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hash, err := helpers.HashBackupCode(code)
		require.NoError(t, err)
		hashes = append(hashes, hash)
	}
	require.NoError(t, ReplaceBackupCodes(db, 1, hashes))

	t.Run("should accept a code exactly once", func(t *testing.T) {
		ok, err := ConsumeBackupCode(db, 1, "AAAA-1111")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = ConsumeBackupCode(db, 1, "AAAA-1111")
		require.NoError(t, err)
		assert.False(t, ok)

		remaining, err := CountRemainingBackupCodes(db, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), remaining)
	})

	t.Run("should not accept another user's code", func(t *testing.T) {
		ok, err := ConsumeBackupCode(db, 2, "BBBB-2222")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should drop old codes when replacing", func(t *testing.T) {
		hash, err := helpers.HashBackupCode("CCCC-3333")
		require.NoError(t, err)
		require.NoError(t, ReplaceBackupCodes(db, 1, []string{hash}))

		ok, err := ConsumeBackupCode(db, 1, "BBBB-2222")
		require.NoError(t, err)
		assert.False(t, ok)

		remaining, err := CountRemainingBackupCodes(db, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), remaining)
	})
}

func TestEnrollmentCleanupQueries(t *testing.T) {
	db := tests.NewSQLiteDB(t)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	verifiedAt := time.Now()

	credentials := []models.TwoFactorCredential{
		{UserID: 1, PendingSecret: "expired", PendingExpiresAt: &past},
		{UserID: 2, PendingSecret: "fresh", PendingExpiresAt: &future},
		{UserID: 3, EncryptedSecret: "active", Verified: true, VerifiedAt: &verifiedAt, PendingSecret: "re-enroll", PendingExpiresAt: &past},
	}
	require.NoError(t, db.Create(&credentials).Error)

	cleared, err := ClearExpiredEnrollments(db, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	deleted, err := DeleteEmptyCredentials(db)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	gone, err := GetTwoFactorCredential(db, 1)
	require.NoError(t, err)
	assert.Nil(t, gone)

	fresh, err := GetTwoFactorCredential(db, 2)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.True(t, fresh.HasPending())

	active, err := GetTwoFactorCredential(db, 3)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.IsActive())
	assert.False(t, active.HasPending())
}

func TestPromoPositions(t *testing.T) {
	db := tests.NewSQLiteDB(t)
	f := seedCatalog(t, db)

	var promos []models.Promo
	for i := range 3 {
		position, err := NextPromoPosition(db)
		require.NoError(t, err)
		promo := models.Promo{VehicleID: f.panda.ID, Position: position, Active: true, Title: string(rune('A' + i))}
		require.NoError(t, db.Create(&promo).Error)
		promos = append(promos, promo)
	}

	t.Run("should apply an explicit order", func(t *testing.T) {
		require.NoError(t, ApplyPromoOrder(db, []uint{promos[2].ID, promos[0].ID, promos[1].ID}))

		listed, err := ListPromos(db, false)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, []string{"C", "A", "B"}, []string{listed[0].Title, listed[1].Title, listed[2].Title})
		assert.Equal(t, []int{0, 1, 2}, []int{listed[0].Position, listed[1].Position, listed[2].Position})
		assert.NotNil(t, listed[0].Vehicle)
	})

	t.Run("should compact positions after a delete", func(t *testing.T) {
		require.NoError(t, db.Delete(&models.Promo{}, promos[0].ID).Error)
		require.NoError(t, CompactPromoPositions(db))

		listed, err := ListPromos(db, false)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, "C", listed[0].Title)
		assert.Equal(t, 0, listed[0].Position)
		assert.Equal(t, "B", listed[1].Title)
		assert.Equal(t, 1, listed[1].Position)
	})
}

func TestGetSettings(t *testing.T) {
	db := tests.NewSQLiteDB(t)

	settings, err := GetSettings(db)
	require.NoError(t, err)
	assert.Equal(t, configuration.AppName, settings.SiteName)
	assert.Equal(t, 0, settings.AutoLogoutMinutes)

	require.NoError(t, db.Model(&settings).Update("auto_logout_minutes", 15).Error)

	again, err := GetSettings(db)
	require.NoError(t, err)
	assert.Equal(t, 15, again.AutoLogoutMinutes)

	var count int64
	require.NoError(t, db.Model(&models.Settings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
