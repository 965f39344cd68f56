package services

import (
	"sync"
	"testing"
	"time"

	"github.com/rentdesk/rentdesk/internal/activity"
	"github.com/rentdesk/rentdesk/internal/configuration"
	h "github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testPassword      = "correct-horse-battery"
	testEncryptionKey = "01234567890123456789012345678901"
)

var (
	testLogger     = zap.NewNop()
	testAuthConfig = models.AuthConfig{
		JWTSecret:       "test-secret-key-for-jwt-signing",
		EncryptionKey:   testEncryptionKey,
		SessionExpiry:   60,
		ChallengeExpiry: 5,
		EnrollmentTTL:   10,
		WebURL:          "http://localhost:3000",
	}
	localProviders = configuration.Providers{
		"local": {Name: "Local", Type: models.LocalProviderType},
	}
)

// --- Mock Activity Logger ---

type MockActivityLogger struct {
	mu       sync.Mutex
	Messages []string
	Points   []models.TimeSeriesPoint
	Criteria map[string][]string
}

func (m *MockActivityLogger) Send(action models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, action.Message)
	return nil
}

func (m *MockActivityLogger) Search(criteria map[string][]string) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Criteria = criteria
	return []map[string]any{{"action": "USER_LOGGED_IN"}}, nil
}

func (m *MockActivityLogger) CountByDay(criteria map[string][]string, _ int) ([]models.TimeSeriesPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Criteria = criteria
	return m.Points, nil
}

func (m *MockActivityLogger) Close() error { return nil }

var _ activity.IActivityLogger = (*MockActivityLogger)(nil)

// --- Fixtures ---

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	hash, err := h.CreateHash(testPassword)
	require.NoError(t, err)

	user := models.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: hash,
		Role:           role,
		ProviderType:   models.LocalProviderType,
		ProviderKey:    "local",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// enableTwoFactor gives the user an active credential and the backup codes in clear.
func enableTwoFactor(t *testing.T, db *gorm.DB, user models.User, codes ...string) string {
	t.Helper()
	key, err := totp.Generate(totp.GenerateOpts{Issuer: configuration.AppName, AccountName: user.Username})
	require.NoError(t, err)

	encrypted, err := h.EncryptSecret(key.Secret(), []byte(testEncryptionKey))
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, db.Create(&models.TwoFactorCredential{
		UserID:          user.ID,
		EncryptedSecret: encrypted,
		Verified:        true,
		VerifiedAt:      &now,
	}).Error)

	for _, code := range codes {
		hash, hashErr := h.HashBackupCode(code)
		require.NoError(t, hashErr)
		require.NoError(t, db.Create(&models.TwoFactorBackupCode{UserID: user.ID, CodeHash: hash}).Error)
	}
	return key.Secret()
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func claimsFor(user models.User) models.UserClaims {
	return models.UserClaims{UserID: user.ID, Username: user.Username, Role: user.Role, Provider: "local"}
}

type catalogSeed struct {
	fiat    models.Brand
	city    models.Category
	panda   models.Vehicle
	draft   models.Vehicle
	pricing models.RentalPricingOption
}

func seedVehicles(t *testing.T, db *gorm.DB) catalogSeed {
	t.Helper()
	s := catalogSeed{
		fiat: models.Brand{Name: "Fiat", Slug: "fiat"},
		city: models.Category{Name: "City car", Slug: "city-car"},
	}
	require.NoError(t, db.Create(&s.fiat).Error)
	require.NoError(t, db.Create(&s.city).Error)

	s.panda = models.Vehicle{
		BrandID: s.fiat.ID, CategoryID: s.city.ID, Model: "Panda", Version: "1.0 Hybrid", Year: 2024,
		Fuel: models.FuelHybrid, Transmission: models.TransmissionManual, Seats: 5, Published: true,
		ImageKeys: models.StringList{"vehicles/1/front.jpg"},
	}
	s.draft = models.Vehicle{
		BrandID: s.fiat.ID, CategoryID: s.city.ID, Model: "Punto", Year: 2018, Seats: 5,
		Fuel: models.FuelPetrol, Transmission: models.TransmissionManual,
	}
	require.NoError(t, db.Create(&s.panda).Error)
	require.NoError(t, db.Create(&s.draft).Error)

	s.pricing = models.RentalPricingOption{
		VehicleID: s.panda.ID, DurationMonths: 36, MileagePerYear: 10000, MonthlyPriceCents: 19900, IsDefault: true,
	}
	require.NoError(t, db.Create(&s.pricing).Error)
	return s
}
