package helpers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenConfig holds configuration for creating a specific token type.
type tokenConfig struct {
	audience      string
	provider      string
	expiryMinutes int
}

// createToken signs an HS256 token for the user. Every token carries a random jti so a
// session can be revoked individually.
func createToken(jwtSecret string, user *models.User, config tokenConfig) (string, error) {
	now := time.Now()
	claims := models.UserClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Aud:      config.audience,
		Issuer:   configuration.AppName,
		Provider: config.provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute * time.Duration(config.expiryMinutes))),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ParseToken validates signature and expiry. Audience checks are left to the callers.
// The requireBearer parameter controls whether the "Bearer " prefix is required.
func ParseToken(jwtSecret string, tokenString string, requireBearer bool) (models.UserClaims, error) {
	if requireBearer {
		if !strings.HasPrefix(tokenString, "Bearer ") {
			return models.UserClaims{}, errors.New("invalid token")
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}

	claims := &models.UserClaims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		},
	)
	if err != nil {
		return models.UserClaims{}, errors.New("invalid token")
	}

	if claims.Issuer != configuration.AppName {
		return models.UserClaims{}, errors.New("invalid token issuer")
	}

	return *claims, nil
}

func CreateHash(password string) (string, error) {
	argonParams := argon2id.Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  32,
		KeyLength:   32,
	}
	hash, err := argon2id.CreateHash(password, &argonParams)
	if err != nil {
		return "", errors.New("can not create hash password")
	}

	return hash, nil
}

func NewSessionToken(jwtSecret string, user *models.User, provider string, expiryMinutes int) (string, error) {
	return createToken(jwtSecret, user, tokenConfig{
		audience:      configuration.AudienceSession,
		provider:      provider,
		expiryMinutes: expiryMinutes,
	})
}

// ParseSessionToken accepts a raw cookie value or a "Bearer " header value.
func ParseSessionToken(jwtSecret string, token string) (models.UserClaims, error) {
	claims, err := ParseToken(jwtSecret, strings.TrimPrefix(token, "Bearer "), false)
	if err != nil {
		return models.UserClaims{}, err
	}

	if claims.Aud != configuration.AudienceSession {
		return models.UserClaims{}, errors.New("invalid session token audience")
	}

	return claims, nil
}

// NewChallengeToken creates the restricted token proving the password step of a login
// that still needs a second factor. It never grants access to the API.
func NewChallengeToken(jwtSecret string, user *models.User, provider string, expiryMinutes int) (string, error) {
	return createToken(jwtSecret, user, tokenConfig{
		audience:      configuration.AudienceTwoFactorLogin,
		provider:      provider,
		expiryMinutes: expiryMinutes,
	})
}

func ParseChallengeToken(jwtSecret string, token string) (models.UserClaims, error) {
	claims, err := ParseToken(jwtSecret, token, false)
	if err != nil {
		return models.UserClaims{}, err
	}

	if claims.Aud != configuration.AudienceTwoFactorLogin {
		return models.UserClaims{}, errors.New("invalid challenge token audience")
	}

	return claims, nil
}

func GetUserClaims(c context.Context) (models.UserClaims, error) {
	value, ok := c.Value(models.UserClaimKey{}).(models.UserClaims)
	if !ok {
		return models.UserClaims{}, errors.New("invalid user claims")
	}
	return value, nil
}
