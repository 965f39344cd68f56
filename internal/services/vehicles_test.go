package services

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/storage"
	"github.com/rentdesk/rentdesk/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Storage ---

type MockStorage struct {
	mu      sync.Mutex
	Objects map[string]bool
	Removed []string
}

func NewMockStorage(keys ...string) *MockStorage {
	objects := make(map[string]bool, len(keys))
	for _, key := range keys {
		objects[key] = true
	}
	return &MockStorage{Objects: objects}
}

func (s *MockStorage) GetBucketName() string { return "test-bucket" }

func (s *MockStorage) PresignedGetObject(objectPath string) (string, error) {
	return "https://storage.test/get/" + objectPath, nil
}

func (s *MockStorage) PresignedPutObject(objectPath string, _ time.Duration) (string, error) {
	return "https://storage.test/put/" + objectPath, nil
}

func (s *MockStorage) StatObject(objectPath string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Objects[objectPath] {
		return nil, errors.New("object not found")
	}
	return map[string]string{"content-type": "image/jpeg"}, nil
}

func (s *MockStorage) ListObjects(prefix string, _ int32) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.Objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *MockStorage) RemoveObject(objectPath string) error {
	return s.RemoveObjects([]string{objectPath})
}

func (s *MockStorage) RemoveObjects(paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, path := range paths {
		delete(s.Objects, path)
		s.Removed = append(s.Removed, path)
	}
	return nil
}

var _ storage.IStorage = (*MockStorage)(nil)

func newVehicleService(t *testing.T, store storage.IStorage) (VehicleService, *MockActivityLogger) {
	t.Helper()
	activityLogger := &MockActivityLogger{}
	return VehicleService{
		DB:             tests.NewSQLiteDB(t),
		Storage:        store,
		ActivityLogger: activityLogger,
	}, activityLogger
}

func vehicleBody(seed catalogSeed) models.VehicleBody {
	return models.VehicleBody{
		BrandID:      seed.fiat.ID,
		CategoryID:   seed.city.ID,
		Model:        "500e",
		Version:      "La Prima",
		Year:         2025,
		Fuel:         models.FuelElectric,
		Transmission: models.TransmissionAutomatic,
	}
}

var adminClaims = models.UserClaims{UserID: 1, Username: "admin", Role: models.RoleAdmin}

func TestVehicleCRUD(t *testing.T) {
	t.Run("should create a draft vehicle with default seats", func(t *testing.T) {
		service, activityLogger := newVehicleService(t, nil)
		seed := seedVehicles(t, service.DB)

		vehicle, err := service.CreateVehicle(testLogger, adminClaims, nil, vehicleBody(seed))
		require.NoError(t, err)
		assert.Equal(t, 5, vehicle.Seats)
		assert.False(t, vehicle.Published)
		require.NotNil(t, vehicle.Brand)
		assert.Equal(t, "Fiat", vehicle.Brand.Name)
		assert.Equal(t, []string{"VEHICLE_CREATED"}, activityLogger.Messages)
	})

	t.Run("should refuse an unknown brand or category", func(t *testing.T) {
		service, _ := newVehicleService(t, nil)
		seed := seedVehicles(t, service.DB)

		body := vehicleBody(seed)
		body.BrandID = 999
		_, err := service.CreateVehicle(testLogger, adminClaims, nil, body)
		assertAPIError(t, err, 404, apierrors.CodeBrandNotFound)

		body = vehicleBody(seed)
		body.CategoryID = 999
		_, err = service.CreateVehicle(testLogger, adminClaims, nil, body)
		assertAPIError(t, err, 404, apierrors.CodeCategoryNotFound)
	})

	t.Run("should unpublish through an update", func(t *testing.T) {
		service, _ := newVehicleService(t, nil)
		seed := seedVehicles(t, service.DB)

		body := vehicleBody(seed)
		body.Model = "Panda"
		body.Published = false
		vehicle, err := service.UpdateVehicle(testLogger, adminClaims, []uint{seed.panda.ID}, body)
		require.NoError(t, err)
		assert.False(t, vehicle.Published)
		assert.Equal(t, models.FuelElectric, vehicle.Fuel)

		catalog := CatalogService{DB: service.DB}
		_, err = catalog.GetVehicle(testLogger, models.UserClaims{}, []uint{seed.panda.ID})
		assertAPIError(t, err, 404, apierrors.CodeVehicleNotFound)
	})

	t.Run("should list unpublished vehicles to administrators", func(t *testing.T) {
		service, _ := newVehicleService(t, nil)
		seedVehicles(t, service.DB)

		list, err := service.GetVehicleList(testLogger, adminClaims, nil, models.VehicleListQueryParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), list.Total)
	})

	t.Run("should remove the vehicle with its promos and photos", func(t *testing.T) {
		store := NewMockStorage()
		service, _ := newVehicleService(t, store)
		seed := seedVehicles(t, service.DB)
		prefix := vehicleImagePrefix(seed.panda.ID)
		store.Objects[prefix+"a.jpg"] = true
		store.Objects[prefix+"b.jpg"] = true
		store.Objects["vehicles/999/keep.jpg"] = true

		promos := PromoService{DB: service.DB}
		first, err := promos.CreatePromo(testLogger, adminClaims, nil, models.PromoBody{VehicleID: seed.panda.ID})
		require.NoError(t, err)
		second, err := promos.CreatePromo(testLogger, adminClaims, nil, models.PromoBody{VehicleID: seed.draft.ID})
		require.NoError(t, err)
		require.Equal(t, 0, first.Position)
		require.Equal(t, 1, second.Position)

		require.NoError(t, service.DeleteVehicle(testLogger, adminClaims, []uint{seed.panda.ID}))

		_, err = service.GetVehicle(testLogger, adminClaims, []uint{seed.panda.ID})
		assertAPIError(t, err, 404, apierrors.CodeVehicleNotFound)

		remaining := promos.GetPromoList(testLogger, adminClaims, nil)
		require.Len(t, remaining, 1)
		assert.Equal(t, second.ID, remaining[0].ID)
		assert.Equal(t, 0, remaining[0].Position)

		assert.ElementsMatch(t, []string{prefix + "a.jpg", prefix + "b.jpg"}, store.Removed)
		assert.True(t, store.Objects["vehicles/999/keep.jpg"])
	})
}

func TestPricingOptions(t *testing.T) {
	body := models.PricingOptionBody{DurationMonths: 48, MileagePerYear: 15000, MonthlyPriceCents: 24900}

	t.Run("should make the first option the default", func(t *testing.T) {
		service, _ := newVehicleService(t, nil)
		seed := seedVehicles(t, service.DB)

		option, err := service.CreatePricing(testLogger, adminClaims, []uint{seed.draft.ID}, body)
		require.NoError(t, err)
		assert.True(t, option.IsDefault)
	})

	t.Run("should keep a single default", func(t *testing.T) {
		service, activityLogger := newVehicleService(t, nil)
		seed := seedVehicles(t, service.DB)

		option, err := service.CreatePricing(testLogger, adminClaims, []uint{seed.panda.ID}, body)
		require.NoError(t, err)
		assert.False(t, option.IsDefault)

		withDefault := body
		withDefault.IsDefault = true
		option, err = service.UpdatePricing(testLogger, adminClaims, []uint{seed.panda.ID, option.ID}, withDefault)
		require.NoError(t, err)
		assert.True(t, option.IsDefault)

		options, err := service.GetPricingList(testLogger, adminClaims, []uint{seed.panda.ID}, struct{}{})
		require.NoError(t, err)
		require.Len(t, options, 2)
		assert.Equal(t, seed.pricing.ID, options[0].ID)
		assert.False(t, options[0].IsDefault)
		assert.True(t, options[1].IsDefault)
		assert.Equal(t, []string{"PRICING_OPTION_SAVED", "PRICING_OPTION_SAVED"}, activityLogger.Messages)
	})

	t.Run("should not touch an option of another vehicle", func(t *testing.T) {
		service, _ := newVehicleService(t, nil)
		seed := seedVehicles(t, service.DB)

		_, err := service.UpdatePricing(testLogger, adminClaims, []uint{seed.draft.ID, seed.pricing.ID}, body)
		assertAPIError(t, err, 404, apierrors.CodePricingNotFound)

		err = service.DeletePricing(testLogger, adminClaims, []uint{seed.draft.ID, seed.pricing.ID})
		assertAPIError(t, err, 404, apierrors.CodePricingNotFound)

		require.NoError(t, service.DeletePricing(testLogger, adminClaims, []uint{seed.panda.ID, seed.pricing.ID}))
	})
}

func TestVehicleImages(t *testing.T) {
	t.Run("should refuse uploads without storage", func(t *testing.T) {
		service, _ := newVehicleService(t, nil)
		seed := seedVehicles(t, service.DB)

		_, err := service.CreateImageUpload(testLogger, adminClaims, []uint{seed.panda.ID},
			models.VehicleImageUploadBody{ContentType: "image/png"})
		assertAPIError(t, err, 503, apierrors.CodeStorageDisabled)
	})

	t.Run("should attach an image only after the upload exists", func(t *testing.T) {
		store := NewMockStorage()
		service, activityLogger := newVehicleService(t, store)
		seed := seedVehicles(t, service.DB)

		upload, err := service.CreateImageUpload(testLogger, adminClaims, []uint{seed.draft.ID},
			models.VehicleImageUploadBody{ContentType: "image/webp"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(upload.Key, vehicleImagePrefix(seed.draft.ID)))
		assert.True(t, strings.HasSuffix(upload.Key, ".webp"))
		assert.Equal(t, "https://storage.test/put/"+upload.Key, upload.UploadURL)

		_, err = service.ConfirmImage(testLogger, adminClaims, []uint{seed.draft.ID}, models.VehicleImageKeyBody{Key: upload.Key})
		assertAPIError(t, err, 404, apierrors.CodeImageNotFound)

		store.Objects[upload.Key] = true
		card, err := service.ConfirmImage(testLogger, adminClaims, []uint{seed.draft.ID}, models.VehicleImageKeyBody{Key: upload.Key})
		require.NoError(t, err)
		assert.Equal(t, models.StringList{upload.Key}, card.ImageKeys)
		assert.Equal(t, []string{"https://storage.test/get/" + upload.Key}, card.ImageURLs)
		assert.Equal(t, []string{"VEHICLE_IMAGE_ADDED"}, activityLogger.Messages)

		_, err = service.ConfirmImage(testLogger, adminClaims, []uint{seed.draft.ID}, models.VehicleImageKeyBody{Key: upload.Key})
		require.NoError(t, err)
		assert.Len(t, activityLogger.Messages, 1, "confirming twice must not duplicate the key")
	})

	t.Run("should refuse a key outside the vehicle prefix", func(t *testing.T) {
		store := NewMockStorage("vehicles/999/x.jpg")
		service, _ := newVehicleService(t, store)
		seed := seedVehicles(t, service.DB)

		_, err := service.ConfirmImage(testLogger, adminClaims, []uint{seed.draft.ID}, models.VehicleImageKeyBody{Key: "vehicles/999/x.jpg"})
		assertAPIError(t, err, 404, apierrors.CodeImageNotFound)
	})

	t.Run("should delete an attached image", func(t *testing.T) {
		store := NewMockStorage()
		service, _ := newVehicleService(t, store)
		seed := seedVehicles(t, service.DB)
		key := seed.panda.ImageKeys[0]
		store.Objects[key] = true

		require.NoError(t, service.DeleteImage(testLogger, adminClaims, []uint{seed.panda.ID}, models.VehicleImageKeyBody{Key: key}))

		vehicle, err := service.GetVehicle(testLogger, adminClaims, []uint{seed.panda.ID})
		require.NoError(t, err)
		assert.Empty(t, vehicle.ImageKeys)
		assert.Equal(t, []string{key}, store.Removed)

		err = service.DeleteImage(testLogger, adminClaims, []uint{seed.panda.ID}, models.VehicleImageKeyBody{Key: key})
		assertAPIError(t, err, 404, apierrors.CodeImageNotFound)
	})
}
