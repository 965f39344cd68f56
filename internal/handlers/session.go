package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rentdesk/rentdesk/internal/configuration"
	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	h "github.com/rentdesk/rentdesk/internal/helpers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const oidcCookieLifetime = 10 * time.Minute

// SessionHandler runs a login-like operation and turns its tokens into cookies. A
// two-factor challenge only ever sets the challenge cookie; a principal sets the
// session cookie and drops any pending challenge.
func SessionHandler[In any](
	config models.AuthConfig,
	status int,
	fn func(*zap.Logger, models.UserClaims, string, In) (models.AuthLoginResponse, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := r.Context().Value(m.BodyKey{}).(In)
		if !ok {
			h.RespondWithError(w, http.StatusBadRequest, []string{"BAD_REQUEST"})
			return
		}

		claims, _ := h.GetUserClaims(r.Context())
		challengeToken := h.CookieValue(r, configuration.ChallengeCookieName)

		resp, err := fn(m.GetLogger(r), claims, challengeToken, body)
		if err != nil {
			h.RespondWithErr(w, err)
			return
		}

		if resp.Challenge != nil {
			writeChallengeCookies(w, config, resp.ChallengeToken)
			h.RespondWithJSON(w, http.StatusOK, resp.Challenge)
			return
		}

		writeSessionCookies(w, config, resp.SessionToken)
		h.RespondWithJSON(w, status, resp.Principal)
	}
}

// LogoutHandler always clears both cookies, even when revoking the session failed.
func LogoutHandler(config models.AuthConfig, logout func(*zap.Logger, models.UserClaims) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := m.GetLogger(r)
		if claims, err := h.GetUserClaims(r.Context()); err == nil {
			if err = logout(logger, claims); err != nil {
				logger.Warn("Failed to revoke session", zap.Error(err))
			}
		}

		h.ClearCookie(w, configuration.SessionCookieName, config.SecureCookies)
		h.ClearCookie(w, configuration.ChallengeCookieName, config.SecureCookies)
		w.WriteHeader(http.StatusNoContent)
	}
}

func OpenIDBeginHandler(
	config models.AuthConfig,
	begin func(providerName string, state string, nonce string) (string, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerName := chi.URLParam(r, "provider")
		state := uuid.NewString()
		nonce := uuid.NewString()

		redirectURL, err := begin(providerName, state, nonce)
		if err != nil {
			m.GetLogger(r).Debug("OIDC begin failed", zap.String("provider", providerName), zap.Error(err))
			h.RespondWithError(w, http.StatusNotFound, []string{"PROVIDER_NOT_FOUND"})
			return
		}

		h.SetCookie(w, configuration.OIDCStateCookieName, state, oidcCookieLifetime, config.SecureCookies)
		h.SetCookie(w, configuration.OIDCNonceCookieName, nonce, oidcCookieLifetime, config.SecureCookies)
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// OpenIDCallbackHandler finishes the provider round trip and sends the browser back to
// the web app, either logged in, to the step-up page, or to the login page with an error.
func OpenIDCallbackHandler(
	config models.AuthConfig,
	callback func(ctx context.Context, logger *zap.Logger, providerKey string, code string, nonce string) (models.AuthLoginResponse, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := m.GetLogger(r)
		providerKey := chi.URLParam(r, "provider")

		state := h.CookieValue(r, configuration.OIDCStateCookieName)
		nonce := h.CookieValue(r, configuration.OIDCNonceCookieName)
		h.ClearCookie(w, configuration.OIDCStateCookieName, config.SecureCookies)
		h.ClearCookie(w, configuration.OIDCNonceCookieName, config.SecureCookies)

		if state == "" || state != r.URL.Query().Get("state") {
			logger.Warn("OIDC state mismatch", zap.String("provider", providerKey))
			redirectWithError(w, r, config.WebURL, "INVALID_STATE")
			return
		}

		resp, err := callback(r.Context(), logger, providerKey, r.URL.Query().Get("code"), nonce)
		if err != nil {
			logger.Warn("OIDC callback failed", zap.String("provider", providerKey), zap.Error(err))
			code := "LOGIN_FAILED"
			var apiErr *apierrors.APIError
			if errors.As(err, &apiErr) {
				code = apiErr.Code
			}
			redirectWithError(w, r, config.WebURL, code)
			return
		}

		if resp.Challenge != nil {
			writeChallengeCookies(w, config, resp.ChallengeToken)
			http.Redirect(w, r, fmt.Sprintf("%s/login/2fa?userId=%d", config.WebURL, resp.Challenge.UserID), http.StatusFound)
			return
		}

		writeSessionCookies(w, config, resp.SessionToken)
		http.Redirect(w, r, config.WebURL+"/", http.StatusFound)
	}
}

func writeChallengeCookies(w http.ResponseWriter, config models.AuthConfig, token string) {
	h.ClearCookie(w, configuration.SessionCookieName, config.SecureCookies)
	h.SetCookie(w, configuration.ChallengeCookieName, token,
		time.Duration(config.ChallengeExpiry)*time.Minute, config.SecureCookies)
}

func writeSessionCookies(w http.ResponseWriter, config models.AuthConfig, token string) {
	h.ClearCookie(w, configuration.ChallengeCookieName, config.SecureCookies)
	h.SetCookie(w, configuration.SessionCookieName, token,
		time.Duration(config.SessionExpiry)*time.Minute, config.SecureCookies)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, webURL string, code string) {
	http.Redirect(w, r, webURL+"/login?error="+url.QueryEscape(code), http.StatusFound)
}
