package models

import (
	"github.com/golang-jwt/jwt/v5"
)

type ProviderType string

const (
	LocalProviderType ProviderType = "local"
	OIDCProviderType  ProviderType = "oidc"
)

type UserClaimKey struct{}

type UserClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Aud      string `json:"aud"`
	Issuer   string `json:"iss"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

type AuthLoginBody struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

type AuthRegisterBody struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// TwoFactorChallenge is the login response body when a second factor is required.
type TwoFactorChallenge struct {
	RequiresTwoFactor bool   `json:"requiresTwoFactor"`
	UserID            uint   `json:"userId"`
	Username          string `json:"username"`
}

// AuthLoginResponse holds exactly one of Principal or Challenge. The tokens are
// turned into cookies by the session handler and never serialized.
type AuthLoginResponse struct {
	Principal      *Principal
	Challenge      *TwoFactorChallenge
	SessionToken   string
	ChallengeToken string
}

type TwoFactorLoginBody struct {
	UserID       uint   `json:"userId"       validate:"required"`
	Token        string `json:"token"        validate:"required,max=16"`
	IsBackupCode bool   `json:"isBackupCode"`
}

type ProviderResponse struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type ProviderType `json:"type"`
}
