package services

import (
	"testing"

	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogVehicles(t *testing.T) {
	db := tests.NewSQLiteDB(t)
	seed := seedVehicles(t, db)

	jeep := models.Brand{Name: "Jeep", Slug: "jeep"}
	suv := models.Category{Name: "SUV", Slug: "suv"}
	require.NoError(t, db.Create(&jeep).Error)
	require.NoError(t, db.Create(&suv).Error)

	renegade := models.Vehicle{
		BrandID: jeep.ID, CategoryID: suv.ID, Model: "Renegade", Year: 2023, Seats: 5, Published: true,
		Fuel: models.FuelDiesel, Transmission: models.TransmissionAutomatic,
	}
	require.NoError(t, db.Create(&renegade).Error)
	require.NoError(t, db.Create(&models.RentalPricingOption{
		VehicleID: renegade.ID, DurationMonths: 36, MileagePerYear: 15000, MonthlyPriceCents: 45900, IsDefault: true,
	}).Error)

	service := CatalogService{DB: db, Storage: NewMockStorage()}

	t.Run("should hide unpublished vehicles", func(t *testing.T) {
		list, err := service.GetVehicleList(testLogger, models.UserClaims{}, nil, models.VehicleListQueryParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), list.Total)
		assert.Equal(t, 1, list.Page)
		assert.Equal(t, 12, list.PageSize)
		for _, card := range list.Items {
			assert.NotEqual(t, seed.draft.ID, card.ID)
		}

		_, err = service.GetVehicle(testLogger, models.UserClaims{}, []uint{seed.draft.ID})
		assertAPIError(t, err, 404, apierrors.CodeVehicleNotFound)
	})

	t.Run("should filter on slugs, fuel and price", func(t *testing.T) {
		cases := []struct {
			name   string
			filter models.VehicleListQueryParams
			want   uint
		}{
			{"brand", models.VehicleListQueryParams{Brand: "jeep"}, renegade.ID},
			{"category", models.VehicleListQueryParams{Category: "city-car"}, seed.panda.ID},
			{"fuel", models.VehicleListQueryParams{Fuel: "hybrid"}, seed.panda.ID},
			{"transmission", models.VehicleListQueryParams{Transmission: "automatic"}, renegade.ID},
			{"max price", models.VehicleListQueryParams{MaxPrice: 20000}, seed.panda.ID},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				list, err := service.GetVehicleList(testLogger, models.UserClaims{}, nil, tc.filter)
				require.NoError(t, err)
				require.Len(t, list.Items, 1)
				assert.Equal(t, tc.want, list.Items[0].ID)
			})
		}
	})

	t.Run("should paginate", func(t *testing.T) {
		list, err := service.GetVehicleList(testLogger, models.UserClaims{}, nil, models.VehicleListQueryParams{Page: 2, PageSize: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), list.Total)
		require.Len(t, list.Items, 1)
		assert.Equal(t, seed.panda.ID, list.Items[0].ID)
	})

	t.Run("should resolve image URLs", func(t *testing.T) {
		card, err := service.GetVehicle(testLogger, models.UserClaims{}, []uint{seed.panda.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"https://storage.test/get/vehicles/1/front.jpg"}, card.ImageURLs)
		require.NotNil(t, card.DefaultPricing())
		assert.Equal(t, int64(19900), card.DefaultPricing().MonthlyPriceCents)

		withoutStorage := CatalogService{DB: db}
		card, err = withoutStorage.GetVehicle(testLogger, models.UserClaims{}, []uint{seed.panda.ID})
		require.NoError(t, err)
		assert.Empty(t, card.ImageURLs)
	})

	t.Run("should list taxonomies by name", func(t *testing.T) {
		brands := service.GetBrandList(testLogger, models.UserClaims{}, nil)
		require.Len(t, brands, 2)
		assert.Equal(t, "Fiat", brands[0].Name)

		categories := service.GetCategoryList(testLogger, models.UserClaims{}, nil)
		require.Len(t, categories, 2)
		assert.Equal(t, "SUV", categories[1].Name)
	})
}

func TestCatalogPromos(t *testing.T) {
	db := tests.NewSQLiteDB(t)
	seed := seedVehicles(t, db)

	require.NoError(t, db.Create(&models.Promo{VehicleID: seed.panda.ID, Title: "Second", Position: 1, Active: true}).Error)
	require.NoError(t, db.Create(&models.Promo{VehicleID: seed.panda.ID, Title: "First", Position: 0, Active: true}).Error)
	require.NoError(t, db.Create(&models.Promo{VehicleID: seed.draft.ID, Title: "Draft", Position: 2, Active: true}).Error)
	require.NoError(t, db.Create(&models.Promo{VehicleID: seed.panda.ID, Title: "Off", Position: 3, Active: false}).Error)

	promos := CatalogService{DB: db}.GetPromoList(testLogger, models.UserClaims{}, nil)
	require.Len(t, promos, 2)
	assert.Equal(t, "First", promos[0].Title)
	assert.Equal(t, "Second", promos[1].Title)
}
