package sql

import (
	"errors"
	"time"

	"github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/models"

	"gorm.io/gorm"
)

// GetTwoFactorCredential returns nil without error when the user never started an enrollment.
func GetTwoFactorCredential(db *gorm.DB, userID uint) (*models.TwoFactorCredential, error) {
	var credential models.TwoFactorCredential
	err := db.Where("user_id = ?", userID).First(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &credential, nil
}

// ReplaceBackupCodes deletes every code of the user and stores the new hashes.
func ReplaceBackupCodes(tx *gorm.DB, userID uint, hashes []string) error {
	if err := tx.Where("user_id = ?", userID).Delete(&models.TwoFactorBackupCode{}).Error; err != nil {
		return err
	}

	if len(hashes) == 0 {
		return nil
	}

	codes := make([]models.TwoFactorBackupCode, 0, len(hashes))
	for _, hash := range hashes {
		codes = append(codes, models.TwoFactorBackupCode{UserID: userID, CodeHash: hash})
	}
	return tx.Create(&codes).Error
}

func CountRemainingBackupCodes(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.Model(&models.TwoFactorBackupCode{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// ConsumeBackupCode marks the matching unused code as used. The update is conditional on
// used_at still being NULL so two concurrent logins cannot both spend the same code.
func ConsumeBackupCode(db *gorm.DB, userID uint, code string) (bool, error) {
	var candidates []models.TwoFactorBackupCode
	err := db.Where("user_id = ? AND used_at IS NULL", userID).Find(&candidates).Error
	if err != nil {
		return false, err
	}

	for _, candidate := range candidates {
		if !helpers.CompareBackupCode(code, candidate.CodeHash) {
			continue
		}

		result := db.Model(&models.TwoFactorBackupCode{}).
			Where("id = ? AND used_at IS NULL", candidate.ID).
			Update("used_at", time.Now().UTC())
		if result.Error != nil {
			return false, result.Error
		}
		return result.RowsAffected == 1, nil
	}

	return false, nil
}

// DeleteTwoFactor removes the credential and every backup code of the user.
func DeleteTwoFactor(tx *gorm.DB, userID uint) error {
	if err := tx.Where("user_id = ?", userID).Delete(&models.TwoFactorBackupCode{}).Error; err != nil {
		return err
	}
	return tx.Where("user_id = ?", userID).Delete(&models.TwoFactorCredential{}).Error
}

// ClearExpiredEnrollments drops pending secrets whose expiry passed.
func ClearExpiredEnrollments(db *gorm.DB, now time.Time) (int, error) {
	result := db.Model(&models.TwoFactorCredential{}).
		Where("pending_expires_at IS NOT NULL AND pending_expires_at < ?", now).
		Updates(map[string]any{"pending_secret": "", "pending_expires_at": nil})
	return int(result.RowsAffected), result.Error
}

// DeleteEmptyCredentials removes credentials that hold neither an active nor a pending secret.
func DeleteEmptyCredentials(db *gorm.DB) (int, error) {
	result := db.
		Where("verified = ?", false).
		Where("pending_secret IS NULL OR pending_secret = ''").
		Delete(&models.TwoFactorCredential{})
	return int(result.RowsAffected), result.Error
}
