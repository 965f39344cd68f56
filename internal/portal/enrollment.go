package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/pquerna/otp"
	"go.uber.org/zap"
)

const (
	codeLength = 6

	// InvalidCodeMessage is shown when the server rejected the typed code.
	InvalidCodeMessage = "Invalid verification code"
	incompleteMessage  = "The server returned an incomplete enrollment, please try again"

	sessionExpiredMessage = "Your session has expired, please sign in again"
)

type EnrollmentState int

const (
	EnrollmentGenerating EnrollmentState = iota
	EnrollmentAwaitingCode
	EnrollmentEnrolled
	EnrollmentFailed
)

func (s EnrollmentState) String() string {
	switch s {
	case EnrollmentGenerating:
		return "generating"
	case EnrollmentAwaitingCode:
		return "awaiting_code"
	case EnrollmentEnrolled:
		return "enrolled"
	case EnrollmentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RetryPolicy bounds the retries of a setup response that came back without a secret.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 2, Delay: time.Second}

// Clipboard receives the backup codes the user copies.
type Clipboard interface {
	WriteText(text string) error
}

type EnrollmentOption func(*Enrollment)

func WithRetryPolicy(policy RetryPolicy) EnrollmentOption {
	return func(e *Enrollment) {
		e.retry = policy
	}
}

func WithClipboard(clipboard Clipboard) EnrollmentOption {
	return func(e *Enrollment) {
		e.clipboard = clipboard
	}
}

// EnrollmentView is a snapshot of what the enrollment screen shows.
type EnrollmentView struct {
	State       EnrollmentState
	Secret      string
	OtpauthURL  string
	Code        string
	Message     string
	BackupCodes []string
	Submitting  bool
}

// Enrollment drives the two-factor setup of the signed-in user.
type Enrollment struct {
	session   *Session
	retry     RetryPolicy
	clipboard Clipboard

	mu          sync.Mutex
	generation  uint64
	cancel      context.CancelFunc
	state       EnrollmentState
	key         *otp.Key
	code        string
	message     string
	backupCodes []string
	submitting  bool
	done        bool
}

func NewEnrollment(session *Session, opts ...EnrollmentOption) *Enrollment {
	e := &Enrollment{
		session: session,
		retry:   DefaultRetryPolicy,
		state:   EnrollmentGenerating,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Enrollment) View() EnrollmentView {
	e.mu.Lock()
	defer e.mu.Unlock()

	view := EnrollmentView{
		State:       e.state,
		Code:        e.code,
		Message:     e.message,
		BackupCodes: append([]string(nil), e.backupCodes...),
		Submitting:  e.submitting,
	}
	if e.key != nil {
		view.Secret = e.key.Secret()
		view.OtpauthURL = e.key.URL()
	}
	return view
}

func (e *Enrollment) State() EnrollmentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Done is true once the user acknowledged the backup codes.
func (e *Enrollment) Done() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Start begins a new enrollment cycle. A cycle still in flight is cancelled and its
// response is ignored.
func (e *Enrollment) Start(ctx context.Context) error {
	if !e.session.Authenticated() {
		return ErrLoginRequired
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	generation := e.generation
	e.cancel = cancel
	e.state = EnrollmentGenerating
	e.key = nil
	e.code = ""
	e.message = ""
	e.backupCodes = nil
	e.submitting = false
	e.done = false
	e.mu.Unlock()

	key, err := e.begin(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != generation {
		return ErrSuperseded
	}
	e.cancel = nil

	if err != nil {
		e.state = EnrollmentFailed
		if isUnauthorized(err) {
			e.session.expire()
			e.message = sessionExpiredMessage
			return ErrLoginRequired
		}
		e.message = failureMessage(err)
		return err
	}

	e.key = key
	e.state = EnrollmentAwaitingCode
	return nil
}

// begin calls the setup endpoint until it returns a usable key or the retries run out.
func (e *Enrollment) begin(ctx context.Context) (*otp.Key, error) {
	logger := e.session.client.logger

	for attempt := 0; ; attempt++ {
		result := e.session.client.do(ctx, http.MethodPost, "/api/auth/2fa/setup", nil)
		if err := result.Err(); err != nil {
			return nil, err
		}

		key, err := parseSetup(result)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrIncompleteEnrollment) || attempt >= e.retry.Attempts {
			return nil, err
		}

		logger.Warn("Incomplete enrollment response, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", e.retry.Delay))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.retry.Delay):
		}
	}
}

// parseSetup accepts only a TOTP key URI carrying the same secret as the body.
func parseSetup(result Result) (*otp.Key, error) {
	var setup models.TwoFactorSetupResponse
	if err := result.Decode(&setup); err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			return nil, ErrIncompleteEnrollment
		}
		return nil, err
	}
	if setup.Secret == "" || setup.OtpauthURL == "" {
		return nil, ErrIncompleteEnrollment
	}

	key, err := otp.NewKeyFromURL(setup.OtpauthURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if key.Type() != "totp" || key.Secret() != setup.Secret {
		return nil, fmt.Errorf("%w: key uri does not match the secret", ErrUnexpectedResponse)
	}
	return key, nil
}

// RenderQR encodes the key URI as a PNG of size x size pixels.
func (e *Enrollment) RenderQR(size int) ([]byte, error) {
	e.mu.Lock()
	key := e.key
	e.mu.Unlock()

	if key == nil {
		return nil, ErrIncompleteEnrollment
	}

	img, err := key.Image(size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return buf.Bytes(), nil
}

// SetCode stores the digits of input, at most six of them.
func (e *Enrollment) SetCode(input string) string {
	var digits strings.Builder
	for _, r := range input {
		if digits.Len() == codeLength {
			break
		}
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.code = digits.String()
	return e.code
}

func (e *Enrollment) CanSubmit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canSubmit()
}

func (e *Enrollment) canSubmit() bool {
	return e.state == EnrollmentAwaitingCode && len(e.code) == codeLength && !e.submitting
}

// Submit verifies the typed code. A rejected code keeps the state and the code so the
// user can correct it.
func (e *Enrollment) Submit(ctx context.Context) error {
	e.mu.Lock()
	if !e.canSubmit() {
		e.mu.Unlock()
		return ErrCodeNotReady
	}
	generation := e.generation
	code := e.code
	e.submitting = true
	e.message = ""
	e.mu.Unlock()

	result := e.session.client.do(ctx, http.MethodPost, "/api/auth/2fa/verify", models.TwoFactorVerifyBody{Token: code})

	var codes models.TwoFactorBackupCodesResponse
	err := result.Err()
	if err == nil {
		err = result.Decode(&codes)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != generation {
		return ErrSuperseded
	}
	e.submitting = false

	if err != nil {
		var requestErr *RequestError
		switch {
		case isUnauthorized(err):
			e.session.expire()
			e.message = sessionExpiredMessage
			return ErrLoginRequired
		case errors.As(err, &requestErr) && requestErr.Status == http.StatusTooManyRequests:
			e.message = requestErr.Message
		case errors.As(err, &requestErr) && requestErr.IsClientError():
			e.message = InvalidCodeMessage
		default:
			e.message = failureMessage(err)
		}
		return err
	}

	e.state = EnrollmentEnrolled
	e.backupCodes = append([]string(nil), codes.BackupCodes...)
	e.key = nil
	e.code = ""
	return nil
}

// CopyCode writes the i-th backup code to the clipboard, when one is set, and returns it.
func (e *Enrollment) CopyCode(i int) (string, error) {
	e.mu.Lock()
	if e.state != EnrollmentEnrolled {
		e.mu.Unlock()
		return "", ErrNotEnrolled
	}
	if i < 0 || i >= len(e.backupCodes) {
		e.mu.Unlock()
		return "", fmt.Errorf("backup code %d out of range", i)
	}
	code := e.backupCodes[i]
	clipboard := e.clipboard
	e.mu.Unlock()

	if clipboard != nil {
		if err := clipboard.WriteText(code); err != nil {
			return "", fmt.Errorf("failed to copy backup code: %w", err)
		}
	}
	return code, nil
}

// Acknowledge ends the flow once the user saved the backup codes.
func (e *Enrollment) Acknowledge() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EnrollmentEnrolled {
		return ErrNotEnrolled
	}
	e.done = true
	e.backupCodes = nil
	return nil
}

func isUnauthorized(err error) bool {
	var requestErr *RequestError
	return errors.As(err, &requestErr) && requestErr.Class == ErrorStatus && requestErr.Status == http.StatusUnauthorized
}

func failureMessage(err error) string {
	var requestErr *RequestError
	switch {
	case errors.As(err, &requestErr):
		return requestErr.Message
	case errors.Is(err, ErrIncompleteEnrollment):
		return incompleteMessage
	default:
		return GenericErrorMessage
	}
}
