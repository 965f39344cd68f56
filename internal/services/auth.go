package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rentdesk/rentdesk/internal/activity"
	"github.com/rentdesk/rentdesk/internal/cache"
	"github.com/rentdesk/rentdesk/internal/configuration"
	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/handlers"
	h "github.com/rentdesk/rentdesk/internal/helpers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/sql"

	"github.com/alexedwards/argon2id"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// AuthService owns sessions: password and OIDC login, the second-factor step of a
// login, registration, logout and the current user.
type AuthService struct {
	DB             *gorm.DB
	Cache          cache.ICache
	AuthConfig     models.AuthConfig
	Providers      configuration.Providers
	ActivityLogger activity.IActivityLogger
}

func (s AuthService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.Validate[models.AuthLoginBody]).
		Post("/login", handlers.SessionHandler(s.AuthConfig, 200, s.Login))
	r.With(m.Validate[models.TwoFactorLoginBody]).
		Post("/login/2fa", handlers.SessionHandler(s.AuthConfig, 200, s.VerifyTwoFactorLogin))
	r.With(m.Validate[models.AuthRegisterBody]).
		Post("/register", handlers.SessionHandler(s.AuthConfig, 201, s.Register))
	r.Post("/logout", handlers.LogoutHandler(s.AuthConfig, s.Logout))
	r.Get("/user", handlers.GetOneHandler(s.GetCurrentUser))

	r.Route("/auth/providers", func(r chi.Router) {
		r.Get("/", handlers.GetListHandler(s.GetProviderList))
		r.Route("/{provider}", func(r chi.Router) {
			r.Get("/begin", handlers.OpenIDBeginHandler(s.AuthConfig, s.OpenIDBegin))
			r.Get("/callback", handlers.OpenIDCallbackHandler(s.AuthConfig, s.OpenIDCallback))
		})
	})
	return r
}

func (s AuthService) Login(
	logger *zap.Logger,
	_ models.UserClaims,
	_ string,
	body models.AuthLoginBody,
) (models.AuthLoginResponse, error) {
	provider, ok := s.Providers[string(models.LocalProviderType)]
	if !ok {
		logger.Debug("Local auth provider not activated in the configuration")
		return models.AuthLoginResponse{}, apierrors.NewAPIError(403, apierrors.CodeForbidden)
	}

	var user models.User
	result := s.DB.Preload("TwoFactor").
		Where("username = ? AND provider_type = ?", body.Username, models.LocalProviderType).
		Limit(1).
		Find(&user)
	if result.Error != nil {
		return models.AuthLoginResponse{}, result.Error
	}
	if result.RowsAffected != 1 {
		return models.AuthLoginResponse{}, apierrors.ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(body.Password, user.HashedPassword)
	if err != nil || !match {
		return models.AuthLoginResponse{}, apierrors.ErrInvalidCredentials
	}

	return s.completeLogin(logger, &user, string(models.LocalProviderType), provider.Name)
}

// completeLogin either opens a session or, when the user's second factor is active,
// hands out a login challenge. A pending enrollment never counts as active.
func (s AuthService) completeLogin(
	logger *zap.Logger,
	user *models.User,
	providerKey string,
	providerName string,
) (models.AuthLoginResponse, error) {
	if user.HasTwoFactorEnabled() {
		challengeToken, err := h.NewChallengeToken(
			s.AuthConfig.JWTSecret,
			user,
			providerKey,
			s.AuthConfig.ChallengeExpiry,
		)
		if err != nil {
			logger.Error("Failed to generate challenge token", zap.Error(err))
			return models.AuthLoginResponse{}, apierrors.ErrGenerateTokenFailed
		}

		logger.Debug("Login requires a second factor", zap.Uint("user_id", user.ID))
		return models.AuthLoginResponse{
			Challenge: &models.TwoFactorChallenge{
				RequiresTwoFactor: true,
				UserID:            user.ID,
				Username:          user.Username,
			},
			ChallengeToken: challengeToken,
		}, nil
	}

	return s.openSession(logger, user, providerKey, providerName)
}

func (s AuthService) openSession(
	logger *zap.Logger,
	user *models.User,
	providerKey string,
	providerName string,
) (models.AuthLoginResponse, error) {
	sessionToken, err := h.NewSessionToken(s.AuthConfig.JWTSecret, user, providerKey, s.AuthConfig.SessionExpiry)
	if err != nil {
		logger.Error("Failed to generate session token", zap.Error(err))
		return models.AuthLoginResponse{}, apierrors.ErrGenerateTokenFailed
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.UserLoggedIn,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":        activity.UserLoggedIn,
			"user_id":       idString(user.ID),
			"object_type":   "user",
			"provider_name": providerName,
		}),
	})

	principal := user.ToPrincipal()
	return models.AuthLoginResponse{Principal: &principal, SessionToken: sessionToken}, nil
}

// VerifyTwoFactorLogin completes a login that was answered with a challenge. The
// challenge cookie must belong to the user named in the body.
func (s AuthService) VerifyTwoFactorLogin(
	logger *zap.Logger,
	_ models.UserClaims,
	challengeToken string,
	body models.TwoFactorLoginBody,
) (models.AuthLoginResponse, error) {
	challenge, err := h.ParseChallengeToken(s.AuthConfig.JWTSecret, challengeToken)
	if err != nil || challenge.UserID != body.UserID {
		logger.Debug("Rejected login challenge", zap.Uint("user_id", body.UserID), zap.Error(err))
		return models.AuthLoginResponse{}, apierrors.NewAPIError(401, apierrors.CodeInvalidChallenge)
	}

	var user models.User
	if err = s.DB.Preload("TwoFactor").Where("id = ?", body.UserID).First(&user).Error; err != nil {
		if isNotFound(err) {
			return models.AuthLoginResponse{}, apierrors.NewAPIError(401, apierrors.CodeInvalidChallenge)
		}
		return models.AuthLoginResponse{}, err
	}
	if !user.HasTwoFactorEnabled() {
		return models.AuthLoginResponse{}, apierrors.NewAPIError(401, apierrors.CodeInvalidChallenge)
	}

	userKey := idString(user.ID)
	attempts, err := s.Cache.GetMFAAttempts(userKey)
	if err != nil {
		logger.Error("Failed to get MFA attempts", zap.Error(err))
	}
	if attempts >= configuration.MFAMaxAttempts {
		logger.Warn("Step-up rate limit exceeded", zap.Uint("user_id", user.ID), zap.Int("attempts", attempts))
		return models.AuthLoginResponse{}, apierrors.NewAPIError(429, apierrors.CodeRateLimited)
	}

	var valid bool
	if body.IsBackupCode {
		code, normErr := h.NormalizeBackupCode(body.Token)
		if normErr == nil {
			valid, err = sql.ConsumeBackupCode(s.DB, user.ID, code)
		}
	} else {
		valid, err = verifyTOTP(s.Cache, s.AuthConfig.EncryptionKey, user.ID, user.TwoFactor.EncryptedSecret, body.Token)
	}
	if err != nil {
		logger.Error("Failed to verify second factor", zap.Error(err))
		return models.AuthLoginResponse{}, apierrors.ErrInternal
	}

	if !valid {
		if incErr := s.Cache.IncrementMFAAttempts(userKey); incErr != nil {
			logger.Error("Failed to increment MFA attempts", zap.Error(incErr))
		}
		logger.Warn("Step-up verification failed",
			zap.Uint("user_id", user.ID),
			zap.Bool("backup_code", body.IsBackupCode))
		return models.AuthLoginResponse{}, apierrors.NewAPIError(401, apierrors.CodeInvalidCode)
	}

	if resetErr := s.Cache.ResetMFAAttempts(userKey); resetErr != nil {
		logger.Warn("Failed to reset MFA attempts", zap.Error(resetErr))
	}

	if body.IsBackupCode {
		logActivity(logger, s.ActivityLogger, models.Activity{
			Message: activity.BackupCodeUsed,
			Object:  user.ToActivity(),
			Filter: activity.NewLogFilter(map[string]string{
				"action":      activity.BackupCodeUsed,
				"user_id":     userKey,
				"object_type": "user",
			}),
		})
	}

	providerName := challenge.Provider
	if provider, ok := s.Providers[challenge.Provider]; ok {
		providerName = provider.Name
	}
	return s.openSession(logger, &user, challenge.Provider, providerName)
}

func (s AuthService) Register(
	logger *zap.Logger,
	_ models.UserClaims,
	_ string,
	body models.AuthRegisterBody,
) (models.AuthLoginResponse, error) {
	provider, ok := s.Providers[string(models.LocalProviderType)]
	if !ok {
		return models.AuthLoginResponse{}, apierrors.NewAPIError(403, apierrors.CodeForbidden)
	}

	var existing int64
	if err := s.DB.Unscoped().Model(&models.User{}).Where("username = ?", body.Username).Count(&existing).Error; err != nil {
		return models.AuthLoginResponse{}, err
	}
	if existing > 0 {
		return models.AuthLoginResponse{}, apierrors.NewAPIError(409, apierrors.CodeUserExists)
	}

	hash, err := h.CreateHash(body.Password)
	if err != nil {
		logger.Error("Failed to hash password", zap.Error(err))
		return models.AuthLoginResponse{}, apierrors.ErrInternal
	}

	user := models.User{
		Username:       body.Username,
		Email:          body.Email,
		HashedPassword: hash,
		Role:           models.RoleUser,
		ProviderType:   models.LocalProviderType,
		ProviderKey:    string(models.LocalProviderType),
	}
	if err = s.DB.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return models.AuthLoginResponse{}, apierrors.NewAPIError(409, apierrors.CodeUserExists)
		}
		return models.AuthLoginResponse{}, err
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.UserRegistered,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.UserRegistered,
			"user_id":     idString(user.ID),
			"object_type": "user",
		}),
	})

	return s.openSession(logger, &user, string(models.LocalProviderType), provider.Name)
}

// Logout revokes the session token for the rest of its lifetime.
func (s AuthService) Logout(logger *zap.Logger, claims models.UserClaims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	if err := s.Cache.RevokeSession(claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return err
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.UserLoggedOut,
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.UserLoggedOut,
			"user_id":     idString(claims.UserID),
			"object_type": "user",
		}),
	})
	return nil
}

func (s AuthService) GetCurrentUser(_ *zap.Logger, claims models.UserClaims, _ []uint) (models.Principal, error) {
	var user models.User
	if err := s.DB.Preload("TwoFactor").Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		if isNotFound(err) {
			return models.Principal{}, apierrors.NewAPIError(401, apierrors.CodeUserNotFound)
		}
		return models.Principal{}, err
	}
	return user.ToPrincipal(), nil
}

func (s AuthService) GetProviderList(_ *zap.Logger, _ models.UserClaims, _ []uint) []models.ProviderResponse {
	providers := make([]models.ProviderResponse, 0, len(s.Providers))
	for id, provider := range s.Providers {
		providers = append(providers, models.ProviderResponse{ID: id, Name: provider.Name, Type: provider.Type})
	}
	sort.Slice(providers, func(i, j int) bool {
		return s.Providers[providers[i].ID].Order < s.Providers[providers[j].ID].Order
	})
	return providers
}

func (s AuthService) OpenIDBegin(providerName string, state string, nonce string) (string, error) {
	provider, ok := s.Providers[providerName]
	if !ok || provider.OauthConfig == nil {
		return "", errors.New("provider not found")
	}

	return provider.OauthConfig.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

func (s AuthService) OpenIDCallback(
	ctx context.Context,
	logger *zap.Logger,
	providerKey string,
	code string,
	nonce string,
) (models.AuthLoginResponse, error) {
	provider, ok := s.Providers[providerKey]
	if !ok || provider.OauthConfig == nil {
		return models.AuthLoginResponse{}, errors.New("provider not found")
	}

	oauth2Token, err := provider.OauthConfig.Exchange(ctx, code)
	if err != nil {
		return models.AuthLoginResponse{}, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return models.AuthLoginResponse{}, errors.New("no id_token field in oauth2 token")
	}

	idToken, err := provider.Verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return models.AuthLoginResponse{}, fmt.Errorf("failed to verify ID token: %w", err)
	}

	if idToken.Nonce != nonce {
		return models.AuthLoginResponse{}, errors.New("nonce does not match")
	}

	userInfo, err := provider.Provider.UserInfo(ctx, oauth2.StaticTokenSource(oauth2Token))
	if err != nil {
		return models.AuthLoginResponse{}, fmt.Errorf("failed to get user info: %w", err)
	}

	if userInfo.Email == "" {
		return models.AuthLoginResponse{}, apierrors.NewAPIError(403, "EMAIL_REQUIRED")
	}

	user, err := s.findOrCreateOIDCUser(logger, providerKey, userInfo.Email)
	if err != nil {
		return models.AuthLoginResponse{}, err
	}

	return s.completeLogin(logger, user, providerKey, provider.Name)
}

func (s AuthService) findOrCreateOIDCUser(logger *zap.Logger, providerKey string, email string) (*models.User, error) {
	var user models.User
	result := s.DB.Preload("TwoFactor").
		Where("email = ? AND provider_type = ? AND provider_key = ?", email, models.OIDCProviderType, providerKey).
		Limit(1).
		Find(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 1 {
		return &user, nil
	}

	username, err := s.availableUsername(email)
	if err != nil {
		return nil, err
	}

	user = models.User{
		Username:     username,
		Email:        email,
		Role:         models.RoleUser,
		ProviderType: models.OIDCProviderType,
		ProviderKey:  providerKey,
	}
	if err = s.DB.Create(&user).Error; err != nil {
		logger.Error("Failed to create OIDC user", zap.String("provider", providerKey), zap.Error(err))
		return nil, apierrors.ErrInternal
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.UserRegistered,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.UserRegistered,
			"user_id":     idString(user.ID),
			"object_type": "user",
		}),
	})
	return &user, nil
}

// availableUsername derives a username from the e-mail local part, suffixed when taken.
func (s AuthService) availableUsername(email string) (string, error) {
	base, _, _ := strings.Cut(email, "@")
	if len(base) > 40 {
		base = base[:40]
	}

	var taken int64
	if err := s.DB.Unscoped().Model(&models.User{}).Where("username = ?", base).Count(&taken).Error; err != nil {
		return "", err
	}
	if taken == 0 {
		return base, nil
	}
	return base + "-" + uuid.NewString()[:8], nil
}
