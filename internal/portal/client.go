// Package portal is the Go client of the RentDesk API. It keeps the signed-in user and
// the pending login challenge in a Session and drives the interactive flows (two-factor
// enrollment, step-up login and idle logout) against the HTTP endpoints.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Client performs the HTTP calls. Cookies are kept in a jar so the session and the
// challenge cookie follow the client like they follow a browser.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

type clientOptions struct {
	logger     *zap.Logger
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*clientOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithHTTPClient sets the underlying client, for a custom transport. Its cookie jar is
// replaced by the session jar.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	options := clientOptions{
		logger:  zap.NewNop(),
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	httpClient := resty.New()
	if options.httpClient != nil {
		httpClient = resty.NewWithClient(options.httpClient)
	}

	httpClient.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetCookieJar(jar).
		SetTimeout(options.timeout).
		SetHeader("Accept", "application/json").
		SetLogger(options.logger.Sugar())

	return &Client{http: httpClient, logger: options.logger}, nil
}

// do sends the request and classifies the response once.
func (c *Client) do(ctx context.Context, method string, path string, body any) Result {
	request := c.http.R().SetContext(ctx)
	if body != nil {
		request.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	response, err := request.Execute(method, path)
	if err != nil {
		c.logger.Warn("Request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return Result{Kind: ResultError, Class: ErrorTransport, Message: GenericErrorMessage, cause: err}
	}

	return classify(response.StatusCode(), response.Status(), response.Header().Get("Content-Type"), response.Body())
}

// PublicSettings reads the settings exposed before login, such as the idle logout threshold.
func (c *Client) PublicSettings(ctx context.Context) (models.PublicSettings, error) {
	var settings models.PublicSettings

	result := c.do(ctx, http.MethodGet, "/api/settings/public", nil)
	if err := result.Err(); err != nil {
		return settings, err
	}
	if err := result.Decode(&settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// statusText drops the numeric prefix resty keeps in the status line.
func statusText(code int, status string) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	if _, text, ok := strings.Cut(status, " "); ok {
		return text
	}
	return status
}

type errorBody struct {
	Message string   `json:"message"`
	Error   []string `json:"error"`
}

func classify(code int, status string, contentType string, body []byte) Result {
	isJSON := strings.Contains(strings.ToLower(contentType), "json")

	if code < 200 || code >= 300 {
		result := Result{Kind: ResultError, Class: ErrorStatus, Status: code, Message: statusText(code, status)}
		if isJSON && len(body) > 0 {
			var parsed errorBody
			if json.Unmarshal(body, &parsed) == nil {
				if parsed.Message != "" {
					result.Message = parsed.Message
				}
				result.Codes = parsed.Error
			}
		}
		return result
	}

	if !isJSON || len(strings.TrimSpace(string(body))) == 0 {
		return Result{Kind: ResultNoBody, Status: code}
	}
	return Result{Kind: ResultOK, Status: code, Body: json.RawMessage(body)}
}
