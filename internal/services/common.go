package services

import (
	"errors"
	"strconv"

	"github.com/rentdesk/rentdesk/internal/activity"
	"github.com/rentdesk/rentdesk/internal/cache"
	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	h "github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// logActivity never fails the caller: the history is best effort.
func logActivity(logger *zap.Logger, activityLogger activity.IActivityLogger, action models.Activity) {
	if activityLogger == nil {
		return
	}
	if err := activityLogger.Send(action); err != nil {
		logger.Error("Failed to log activity", zap.String("action", action.Message), zap.Error(err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func notFound(code string) error {
	return apierrors.NewAPIError(404, code)
}

// verifyTOTP checks a code against an encrypted secret and records it so the same code
// is refused for the rest of its validity window.
func verifyTOTP(c cache.ICache, encryptionKey string, userID uint, encryptedSecret string, code string) (bool, error) {
	valid, err := validateTOTP(encryptionKey, encryptedSecret, code)
	if err != nil || !valid {
		return false, err
	}

	return c.MarkTOTPCodeUsed(idString(userID), code)
}

// validateTOTP checks the code against the secret without recording it in the replay cache.
func validateTOTP(encryptionKey string, encryptedSecret string, code string) (bool, error) {
	secret, err := h.DecryptSecret(encryptedSecret, []byte(encryptionKey))
	if err != nil {
		return false, err
	}

	return h.ValidateTOTPCode(secret, code), nil
}
