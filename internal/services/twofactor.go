package services

import (
	"errors"
	"time"

	"github.com/rentdesk/rentdesk/internal/activity"
	"github.com/rentdesk/rentdesk/internal/cache"
	"github.com/rentdesk/rentdesk/internal/configuration"
	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/handlers"
	h "github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/messaging"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/sql"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errEnrollmentCode = errors.New("invalid enrollment code")

// TwoFactorService manages the TOTP credential of the authenticated user.
type TwoFactorService struct {
	DB             *gorm.DB
	Cache          cache.ICache
	AuthConfig     models.AuthConfig
	Publisher      messaging.IPublisher
	ActivityLogger activity.IActivityLogger
}

func (s TwoFactorService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", handlers.GetOneHandler(s.GetStatus))
	r.Post("/setup", handlers.GetOneHandler(s.BeginEnrollment))

	r.With(m.Validate[models.TwoFactorVerifyBody]).
		Post("/verify", handlers.UpdateHandler(s.VerifyEnrollment))

	r.With(m.Validate[models.TwoFactorPasswordBody]).
		Delete("/", handlers.BodyHandler(s.Disable))

	r.With(m.Validate[models.TwoFactorPasswordBody]).
		Post("/backup-codes", handlers.UpdateHandler(s.RegenerateBackupCodes))
	return r
}

func (s TwoFactorService) GetStatus(
	_ *zap.Logger,
	claims models.UserClaims,
	_ []uint,
) (models.TwoFactorStatusResponse, error) {
	credential, err := sql.GetTwoFactorCredential(s.DB, claims.UserID)
	if err != nil {
		return models.TwoFactorStatusResponse{}, err
	}
	if credential == nil {
		return models.TwoFactorStatusResponse{}, nil
	}

	status := models.TwoFactorStatusResponse{
		Enabled: credential.IsActive(),
		Pending: credential.HasPending() && !credential.PendingExpired(time.Now()),
	}
	if status.Enabled {
		status.BackupCodesRemaining, err = sql.CountRemainingBackupCodes(s.DB, claims.UserID)
		if err != nil {
			return models.TwoFactorStatusResponse{}, err
		}
	}
	return status, nil
}

// BeginEnrollment stores a fresh pending secret, replacing any earlier one. An active
// secret is left untouched and keeps guarding login until the new one is verified.
func (s TwoFactorService) BeginEnrollment(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
) (models.TwoFactorSetupResponse, error) {
	var user models.User
	if err := s.DB.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		if isNotFound(err) {
			return models.TwoFactorSetupResponse{}, apierrors.NewAPIError(404, apierrors.CodeUserNotFound)
		}
		return models.TwoFactorSetupResponse{}, err
	}

	key, err := h.GenerateTOTPSecret(user.Username)
	if err != nil {
		logger.Error("Failed to generate TOTP secret", zap.Error(err))
		return models.TwoFactorSetupResponse{}, apierrors.NewAPIError(500, apierrors.CodeTwoFactorSetupFailed)
	}

	encrypted, err := h.EncryptSecret(key.Secret, []byte(s.AuthConfig.EncryptionKey))
	if err != nil {
		logger.Error("Failed to encrypt TOTP secret", zap.Error(err))
		return models.TwoFactorSetupResponse{}, apierrors.NewAPIError(500, apierrors.CodeTwoFactorSetupFailed)
	}

	expiresAt := time.Now().Add(time.Duration(s.AuthConfig.EnrollmentTTL) * time.Minute)
	credential := models.TwoFactorCredential{
		UserID:           user.ID,
		PendingSecret:    encrypted,
		PendingExpiresAt: &expiresAt,
	}
	err = s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pending_secret", "pending_expires_at", "updated_at"}),
	}).Create(&credential).Error
	if err != nil {
		logger.Error("Failed to store pending TOTP secret", zap.Error(err))
		return models.TwoFactorSetupResponse{}, apierrors.NewAPIError(500, apierrors.CodeTwoFactorSetupFailed)
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.TwoFactorEnrollStart,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.TwoFactorEnrollStart,
			"user_id":     idString(user.ID),
			"object_type": "user",
		}),
	})

	return models.TwoFactorSetupResponse{
		QRCode:     key.QRCode,
		OtpauthURL: key.URL,
		Secret:     key.Secret,
	}, nil
}

// VerifyEnrollment promotes the pending secret once the user proves they can read it.
// The previous secret and every previous backup code are replaced in the same transaction.
func (s TwoFactorService) VerifyEnrollment(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
	body models.TwoFactorVerifyBody,
) (models.TwoFactorBackupCodesResponse, error) {
	userKey := idString(claims.UserID)

	attempts, err := s.Cache.GetMFAAttempts(userKey)
	if err != nil {
		logger.Error("Failed to get MFA attempts", zap.Error(err))
	}
	if attempts >= configuration.MFAMaxAttempts {
		logger.Warn("Enrollment verification rate limited", zap.Uint("user_id", claims.UserID))
		return models.TwoFactorBackupCodesResponse{}, apierrors.NewAPIError(429, apierrors.CodeRateLimited)
	}

	var user models.User
	var codes []string
	var expired bool

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			return err
		}

		var credential models.TwoFactorCredential
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", claims.UserID).
			Limit(1).
			Find(&credential)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 || !credential.HasPending() {
			return apierrors.NewAPIError(400, apierrors.CodeNoPendingEnrollment)
		}

		if credential.PendingExpired(time.Now()) {
			if err := tx.Model(&credential).Updates(map[string]any{
				"pending_secret":     "",
				"pending_expires_at": nil,
			}).Error; err != nil {
				return err
			}
			expired = true
			return nil
		}

		valid, err := validateTOTP(s.AuthConfig.EncryptionKey, credential.PendingSecret, body.Token)
		if err != nil {
			logger.Error("Failed to verify enrollment code", zap.Error(err))
			return apierrors.ErrInternal
		}
		if !valid {
			return errEnrollmentCode
		}

		now := time.Now()
		if err = tx.Model(&credential).Updates(map[string]any{
			"encrypted_secret":   credential.PendingSecret,
			"verified":           true,
			"verified_at":        now,
			"pending_secret":     "",
			"pending_expires_at": nil,
		}).Error; err != nil {
			return err
		}

		codes, err = h.GenerateBackupCodes(configuration.BackupCodeCount)
		if err != nil {
			return err
		}
		hashes := make([]string, 0, len(codes))
		for _, code := range codes {
			hash, hashErr := h.HashBackupCode(code)
			if hashErr != nil {
				return hashErr
			}
			hashes = append(hashes, hash)
		}
		if err = sql.ReplaceBackupCodes(tx, claims.UserID, hashes); err != nil {
			return err
		}

		// The code is burned only once every write above succeeded.
		fresh, err := s.Cache.MarkTOTPCodeUsed(userKey, body.Token)
		if err != nil {
			logger.Error("Failed to record enrollment code", zap.Error(err))
			return apierrors.ErrInternal
		}
		if !fresh {
			return errEnrollmentCode
		}
		return nil
	})

	switch {
	case err == nil && expired:
		return models.TwoFactorBackupCodesResponse{}, apierrors.NewAPIError(400, apierrors.CodeEnrollmentExpired)
	case errors.Is(err, errEnrollmentCode):
		if incErr := s.Cache.IncrementMFAAttempts(userKey); incErr != nil {
			logger.Error("Failed to increment MFA attempts", zap.Error(incErr))
		}
		logger.Warn("Enrollment verification failed", zap.Uint("user_id", claims.UserID))
		return models.TwoFactorBackupCodesResponse{}, apierrors.NewAPIError(400, apierrors.CodeInvalidCode)
	case err != nil:
		if isNotFound(err) {
			return models.TwoFactorBackupCodesResponse{}, apierrors.NewAPIError(404, apierrors.CodeUserNotFound)
		}
		return models.TwoFactorBackupCodesResponse{}, err
	}

	if resetErr := s.Cache.ResetMFAAttempts(userKey); resetErr != nil {
		logger.Warn("Failed to reset MFA attempts", zap.Error(resetErr))
	}

	events.NewTwoFactorEnabled(s.Publisher, user.Email, user.Username).Trigger()
	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.TwoFactorEnabled,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.TwoFactorEnabled,
			"user_id":     userKey,
			"object_type": "user",
		}),
	})

	logger.Info("Two-factor authentication enabled", zap.Uint("user_id", user.ID))
	return models.TwoFactorBackupCodesResponse{BackupCodes: codes}, nil
}

func (s TwoFactorService) Disable(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
	body models.TwoFactorPasswordBody,
) error {
	user, err := s.loadUser(claims.UserID)
	if err != nil {
		return err
	}
	if user.TwoFactor == nil {
		return apierrors.NewAPIError(400, apierrors.CodeTwoFactorNotEnabled)
	}

	if err = s.confirmIdentity(logger, user, body); err != nil {
		return err
	}

	if err = s.DB.Transaction(func(tx *gorm.DB) error {
		return sql.DeleteTwoFactor(tx, user.ID)
	}); err != nil {
		return err
	}

	events.NewTwoFactorDisabled(s.Publisher, user.Email, user.Username, false).Trigger()
	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.TwoFactorDisabled,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.TwoFactorDisabled,
			"user_id":     idString(user.ID),
			"object_type": "user",
		}),
	})
	return nil
}

// RegenerateBackupCodes invalidates every earlier code, used or not.
func (s TwoFactorService) RegenerateBackupCodes(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
	body models.TwoFactorPasswordBody,
) (models.TwoFactorBackupCodesResponse, error) {
	user, err := s.loadUser(claims.UserID)
	if err != nil {
		return models.TwoFactorBackupCodesResponse{}, err
	}
	if !user.HasTwoFactorEnabled() {
		return models.TwoFactorBackupCodesResponse{}, apierrors.NewAPIError(400, apierrors.CodeTwoFactorNotEnabled)
	}

	if err = s.confirmIdentity(logger, user, body); err != nil {
		return models.TwoFactorBackupCodesResponse{}, err
	}

	codes, err := h.GenerateBackupCodes(configuration.BackupCodeCount)
	if err != nil {
		return models.TwoFactorBackupCodesResponse{}, err
	}
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hash, hashErr := h.HashBackupCode(code)
		if hashErr != nil {
			return models.TwoFactorBackupCodesResponse{}, hashErr
		}
		hashes = append(hashes, hash)
	}

	if err = s.DB.Transaction(func(tx *gorm.DB) error {
		return sql.ReplaceBackupCodes(tx, user.ID, hashes)
	}); err != nil {
		return models.TwoFactorBackupCodesResponse{}, err
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.BackupCodesRegen,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.BackupCodesRegen,
			"user_id":     idString(user.ID),
			"object_type": "user",
		}),
	})
	return models.TwoFactorBackupCodesResponse{BackupCodes: codes}, nil
}

func (s TwoFactorService) loadUser(userID uint) (*models.User, error) {
	var user models.User
	if err := s.DB.Preload("TwoFactor").Where("id = ?", userID).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, apierrors.NewAPIError(404, apierrors.CodeUserNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// confirmIdentity re-authenticates a sensitive change. Provider users have no local
// password, so they confirm with a current code from their authenticator instead.
func (s TwoFactorService) confirmIdentity(logger *zap.Logger, user *models.User, body models.TwoFactorPasswordBody) error {
	if user.ProviderType == models.LocalProviderType {
		if body.Password == "" {
			return apierrors.NewAPIError(400, apierrors.CodeInvalidPassword)
		}
		match, err := argon2id.ComparePasswordAndHash(body.Password, user.HashedPassword)
		if err != nil || !match {
			logger.Debug("Password confirmation failed", zap.Uint("user_id", user.ID))
			return apierrors.NewAPIError(400, apierrors.CodeInvalidPassword)
		}
		return nil
	}

	if !user.HasTwoFactorEnabled() || body.Code == "" {
		return apierrors.NewAPIError(400, apierrors.CodeInvalidCode)
	}
	valid, err := verifyTOTP(s.Cache, s.AuthConfig.EncryptionKey, user.ID, user.TwoFactor.EncryptedSecret, body.Code)
	if err != nil {
		logger.Error("Failed to verify confirmation code", zap.Error(err))
		return apierrors.ErrInternal
	}
	if !valid {
		return apierrors.NewAPIError(400, apierrors.CodeInvalidCode)
	}
	return nil
}
