package models

import (
	"time"
)

// TwoFactorCredential is the per-user TOTP state. EncryptedSecret guards login once
// Verified is set; PendingSecret holds an enrollment that has not been confirmed yet.
type TwoFactorCredential struct {
	ID               uint       `gorm:"primarykey"`
	UserID           uint       `gorm:"uniqueIndex;not null"`
	EncryptedSecret  string     `gorm:"type:text"`
	Verified         bool       `gorm:"not null;default:false"`
	VerifiedAt       *time.Time
	PendingSecret    string     `gorm:"type:text"`
	PendingExpiresAt *time.Time `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (c *TwoFactorCredential) IsActive() bool {
	return c.Verified && c.EncryptedSecret != ""
}

func (c *TwoFactorCredential) HasPending() bool {
	return c.PendingSecret != ""
}

func (c *TwoFactorCredential) PendingExpired(now time.Time) bool {
	return c.PendingExpiresAt == nil || now.After(*c.PendingExpiresAt)
}

type TwoFactorBackupCode struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"index;not null"`
	CodeHash  string `gorm:"type:varchar(255);not null"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

type TwoFactorSetupResponse struct {
	QRCode     string `json:"qrCode"`
	OtpauthURL string `json:"otpauthUrl"`
	Secret     string `json:"secret"`
}

type TwoFactorVerifyBody struct {
	Token string `json:"token" validate:"required,len=6,numeric"`
}

type TwoFactorBackupCodesResponse struct {
	BackupCodes []string `json:"backupCodes"`
}

type TwoFactorStatusResponse struct {
	Enabled              bool  `json:"enabled"`
	Pending              bool  `json:"pending"`
	BackupCodesRemaining int64 `json:"backupCodesRemaining"`
}

// TwoFactorPasswordBody confirms a sensitive change. Local users send their password,
// users signed in through a provider send a current TOTP code instead.
type TwoFactorPasswordBody struct {
	Password string `json:"password" validate:"required_without=Code,max=72"`
	Code     string `json:"code"     validate:"omitempty,len=6,numeric"`
}
