package portal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
)

// PendingChallenge marks a login that still needs a second factor.
type PendingChallenge struct {
	UserID   uint
	Username string
}

type LoginStatus int

const (
	LoginFailed LoginStatus = iota
	LoginComplete
	LoginStepUpRequired
)

// Session owns the signed-in Principal and the pending challenge. Every operation
// takes a version ticket when it starts and only writes back if no other operation
// started in the meantime.
type Session struct {
	client *Client

	mu        sync.Mutex
	version   uint64
	principal *models.Principal
	challenge *PendingChallenge
}

func NewSession(client *Client) *Session {
	return &Session{client: client}
}

func (s *Session) Client() *Client {
	return s.client
}

func (s *Session) Principal() (models.Principal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return models.Principal{}, false
	}
	return *s.principal, true
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal != nil
}

func (s *Session) PendingChallenge() (PendingChallenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.challenge == nil {
		return PendingChallenge{}, false
	}
	return *s.challenge, true
}

func (s *Session) ticket() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	return s.version
}

// commit runs write under the lock when ticket is still the latest.
func (s *Session) commit(ticket uint64, write func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != ticket {
		s.client.logger.Debug("Discarding superseded session update", zap.Uint64("ticket", ticket))
		return ErrSuperseded
	}
	write()
	return nil
}

// Login signs in with a password. A step-up marker stores the pending challenge and
// leaves the Principal empty.
func (s *Session) Login(ctx context.Context, username string, password string) (LoginStatus, error) {
	ticket := s.ticket()

	result := s.client.do(ctx, http.MethodPost, "/api/login", models.AuthLoginBody{
		Username: username,
		Password: password,
	})
	if err := result.Err(); err != nil {
		return LoginFailed, err
	}

	var marker models.TwoFactorChallenge
	if err := result.Decode(&marker); err != nil {
		return LoginFailed, err
	}

	if marker.RequiresTwoFactor {
		err := s.commit(ticket, func() {
			s.principal = nil
			s.challenge = &PendingChallenge{UserID: marker.UserID, Username: marker.Username}
		})
		if err != nil {
			return LoginFailed, err
		}
		return LoginStepUpRequired, nil
	}

	var principal models.Principal
	if err := result.Decode(&principal); err != nil {
		return LoginFailed, err
	}

	if err := s.setPrincipal(ticket, principal); err != nil {
		return LoginFailed, err
	}
	return LoginComplete, nil
}

// VerifyStepUp completes a pending login with a TOTP or a backup code. The challenge
// survives a failure so the user can try again without the password.
func (s *Session) VerifyStepUp(ctx context.Context, token string, isBackupCode bool) error {
	challenge, ok := s.PendingChallenge()
	if !ok {
		return ErrNoPendingChallenge
	}
	ticket := s.ticket()

	result := s.client.do(ctx, http.MethodPost, "/api/login/2fa", models.TwoFactorLoginBody{
		UserID:       challenge.UserID,
		Token:        token,
		IsBackupCode: isBackupCode,
	})
	if err := result.Err(); err != nil {
		return err
	}

	var principal models.Principal
	if err := result.Decode(&principal); err != nil {
		return err
	}
	return s.setPrincipal(ticket, principal)
}

// AbandonStepUp drops the pending challenge and any step-up still in flight.
func (s *Session) AbandonStepUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.challenge = nil
}

func (s *Session) Register(ctx context.Context, username string, email string, password string) error {
	ticket := s.ticket()

	result := s.client.do(ctx, http.MethodPost, "/api/register", models.AuthRegisterBody{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err := result.Err(); err != nil {
		return err
	}

	var principal models.Principal
	if err := result.Decode(&principal); err != nil {
		return err
	}
	return s.setPrincipal(ticket, principal)
}

// Refresh reloads the Principal of an existing session cookie. A 401 clears the local
// state and returns ErrLoginRequired.
func (s *Session) Refresh(ctx context.Context) error {
	ticket := s.ticket()

	result := s.client.do(ctx, http.MethodGet, "/api/user", nil)
	if err := result.Err(); err != nil {
		var requestErr *RequestError
		if errors.As(err, &requestErr) && requestErr.Status == http.StatusUnauthorized {
			if commitErr := s.commit(ticket, s.clear); commitErr != nil {
				return commitErr
			}
			return ErrLoginRequired
		}
		return err
	}

	var principal models.Principal
	if err := result.Decode(&principal); err != nil {
		return err
	}
	return s.setPrincipal(ticket, principal)
}

// Logout clears the local state first, so it is signed out even when the call fails.
func (s *Session) Logout(ctx context.Context) error {
	s.expire()

	if err := s.client.do(ctx, http.MethodPost, "/api/logout", nil).Err(); err != nil {
		s.client.logger.Warn("Server logout failed, local session cleared anyway", zap.Error(err))
		return err
	}
	return nil
}

// expire drops the local state and supersedes every operation in flight.
func (s *Session) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.clear()
}

func (s *Session) setPrincipal(ticket uint64, principal models.Principal) error {
	return s.commit(ticket, func() {
		s.principal = &principal
		s.challenge = nil
	})
}

// clear expects s.mu to be held.
func (s *Session) clear() {
	s.principal = nil
	s.challenge = nil
}
