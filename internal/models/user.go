package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID             uint           `gorm:"primarykey"                               json:"id"`
	Username       string         `gorm:"type:varchar(50);uniqueIndex;not null"    json:"username"`
	Email          string         `gorm:"type:varchar(254);not null"               json:"email"`
	HashedPassword string         `gorm:"type:varchar(255)"                        json:"-"`
	Role           Role           `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	ProviderType   ProviderType   `gorm:"type:varchar(16);not null"                json:"providerType"`
	ProviderKey    string         `gorm:"type:varchar(64);not null"                json:"providerKey"`
	CreatedAt      time.Time      `                                                json:"createdAt"`
	UpdatedAt      time.Time      `                                                json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index"                                    json:"-"`

	TwoFactor *TwoFactorCredential `gorm:"foreignKey:UserID" json:"-"`
}

// HasTwoFactorEnabled reports whether the preloaded credential guards login.
func (u *User) HasTwoFactorEnabled() bool {
	return u.TwoFactor != nil && u.TwoFactor.IsActive()
}

func (u *User) ToActivity() UserActivity {
	return UserActivity{ID: u.ID, Username: u.Username, Email: u.Email}
}

type UserActivity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Principal is the public view of an authenticated user.
type Principal struct {
	ID               uint   `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Role             Role   `json:"role"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

func (u *User) ToPrincipal() Principal {
	return Principal{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		TwoFactorEnabled: u.HasTwoFactorEnabled(),
	}
}

type UserRoleUpdateBody struct {
	Role Role `json:"role" validate:"required,oneof=admin user"`
}

type UserListQueryParams struct {
	Search string `json:"search" validate:"omitempty,max=100"`
}
