package models

import "time"

// Settings is a single-row table of administrator preferences.
type Settings struct {
	ID                uint      `gorm:"primarykey"                json:"-"`
	SiteName          string    `gorm:"type:varchar(100)"         json:"siteName"`
	AutoLogoutMinutes int       `gorm:"not null;default:0"        json:"autoLogoutMinutes"`
	LeadEmail         string    `gorm:"type:varchar(254)"         json:"leadEmail"`
	UpdatedAt         time.Time `                                 json:"updatedAt"`
}

type SettingsBody struct {
	SiteName          string `json:"siteName"          validate:"required,min=1,max=100"`
	AutoLogoutMinutes int    `json:"autoLogoutMinutes" validate:"gte=0,lte=1440"`
	LeadEmail         string `json:"leadEmail"         validate:"omitempty,email,max=254"`
}

// PublicSettings is the subset exposed to unauthenticated clients.
type PublicSettings struct {
	SiteName          string `json:"siteName"`
	AutoLogoutMinutes int    `json:"autoLogoutMinutes"`
}

func (Settings) TableName() string {
	return "settings"
}

// SettingsID is the primary key of the only settings row.
const SettingsID = 1
