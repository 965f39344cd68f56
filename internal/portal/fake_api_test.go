package portal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

var testPrincipal = models.Principal{ID: 7, Username: "mrossi", Email: "mrossi@example.com", Role: models.RoleUser}

// fakeAPI serves the routes a test registers and counts the calls per route.
type fakeAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		handlers: map[string]http.HandlerFunc{},
		calls:    map[string]int{},
	}

	r := chi.NewRouter()
	r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		api.mu.Lock()
		api.calls[route]++
		handler, ok := api.handlers[route]
		api.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, models.Error{Status: http.StatusNotFound, Error: []string{"NOT_FOUND"}})
			return
		}
		handler(w, r)
	})

	api.server = httptest.NewServer(r)
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) handle(method string, path string, handler http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[method+" "+path] = handler
}

func (a *fakeAPI) count(method string, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method+" "+path]
}

func (a *fakeAPI) client(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(a.server.URL, WithTimeout(5*time.Second))
	require.NoError(t, err)
	return client
}

func (a *fakeAPI) session(t *testing.T) *Session {
	t.Helper()
	return NewSession(a.client(t))
}

// signedInSession returns a session whose login completed without a second factor.
func (a *fakeAPI) signedInSession(t *testing.T) *Session {
	t.Helper()
	a.handle(http.MethodPost, "/api/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, testPrincipal)
	})

	session := a.session(t)
	status, err := session.Login(t.Context(), "mrossi", "ChangeMe123!")
	require.NoError(t, err)
	require.Equal(t, LoginComplete, status)
	return session
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, models.Error{Status: status, Error: []string{code}, Message: message})
}

func decodeBody[T any](t *testing.T, r *http.Request) T {
	t.Helper()
	var body T
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func newTestKey(t *testing.T) *otp.Key {
	t.Helper()
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "RentDesk", AccountName: "mrossi"})
	require.NoError(t, err)
	return key
}

func setupResponse(key *otp.Key) models.TwoFactorSetupResponse {
	return models.TwoFactorSetupResponse{
		QRCode:     "data:image/png;base64,AAAA",
		OtpauthURL: key.URL(),
		Secret:     key.Secret(),
	}
}
