// Package content fetches JSON content from the authoring environment that
// matches the current site tier.
package content

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/metrics"
)

const maxResponseBytes = 5 * 1024 * 1024

// ErrAuthRedirect is returned when the content service answers with a
// redirect, which it does when the caller must log in first.
var ErrAuthRedirect = errors.AuthError("content request redirected to login").Build()

// Credentials attaches caller credentials to an outgoing request.
type Credentials func(req *http.Request)

// ForwardCookies returns Credentials copying the cookies and authorization
// header of an incoming request.
func ForwardCookies(in *http.Request) Credentials {
	return func(req *http.Request) {
		for _, c := range in.Cookies() {
			req.AddCookie(c)
		}
		if auth := in.Header.Get("Authorization"); auth != "" {
			req.Header.Set("Authorization", auth)
		}
	}
}

// Client talks to the content service on behalf of one site origin.
type Client struct {
	origin      string
	configPath  string
	httpClient  *http.Client
	credentials Credentials
	recorder    metrics.Recorder
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its redirect policy is overridden
// so redirects are always surfaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.httpClient = &clone
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a Client for the given site origin.
func NewClient(origin string, cfg config.ContentConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultContentTimeout
	}
	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.DefaultContentConfig
	}
	c := &Client{
		origin:     strings.TrimSuffix(origin, "/"),
		configPath: configPath,
		httpClient: &http.Client{Timeout: timeout},
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

// WithCredentials returns a copy of c that sends credentials from fn.
func (c *Client) WithCredentials(fn Credentials) *Client {
	clone := *c
	clone.credentials = fn
	return &clone
}

// FetchJSON GETs rawURL with credentials and decodes the body into out.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, out any) error {
	return c.fetchJSON(ctx, rawURL, out, true)
}

func (c *Client) fetchJSON(ctx context.Context, rawURL string, out any, withCredentials bool) (err error) {
	start := time.Now()
	defer func() {
		c.recorder.ObserveContentFetch(time.Since(start), err == nil)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "failed to create content request").
			WithContext("url", rawURL).
			Build()
	}
	req.Header.Set("Content-Type", "text/html")
	if withCredentials && c.credentials != nil {
		c.credentials(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "content request failed").
			WithContext("url", rawURL).
			Retryable().
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return ErrAuthRedirect.
			WithContext("url", rawURL).
			WithContext("location", resp.Header.Get("Location"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NetworkError("unexpected content response status").
			WithContext("url", rawURL).
			WithContext("status", resp.StatusCode).
			Build()
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to read content response").
			WithContext("url", rawURL).
			Build()
	}
	if len(data) > maxResponseBytes {
		return errors.ValidationError("content response too large").WithContext("url", rawURL).Build()
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "content response is not valid JSON").
			WithContext("url", rawURL).
			Build()
	}
	return nil
}

// EnvironmentConfig is one row of the remote environment config.
type EnvironmentConfig struct {
	Author string `json:"aem-author"`
	Live   string `json:"hlx.live"`
	Page   string `json:"hlx.page"`
}

type environmentSheet struct {
	Data []EnvironmentConfig `json:"data"`
}

// Result is the response of a content query.
type Result struct {
	Data json.RawMessage `json:"data"`
	Env  string          `json:"env"`
}

// Environment fetches the remote config and resolves the content origin for
// the site tier of the client origin. The config is fetched on every call.
func (c *Client) Environment(ctx context.Context) (string, error) {
	var sheet environmentSheet
	if err := c.fetchJSON(ctx, c.origin+c.configPath, &sheet, true); err != nil {
		return "", err
	}
	if len(sheet.Data) == 0 {
		return "", errors.ValidationError("environment config has no rows").
			WithContext("url", c.origin+c.configPath).
			Build()
	}
	return ResolveEnvironment(c.origin, sheet.Data[0]), nil
}

// ResolveEnvironment derives the content origin from the author origin. A
// site served from a .live host swaps the author token for the live tier, a
// .page host for the preview tier. Trailing slashes are removed.
func ResolveEnvironment(origin string, cfg EnvironmentConfig) string {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	env := cfg.Author
	switch {
	case strings.Contains(host, ".live"):
		env = strings.Replace(env, "author", cfg.Live, 1)
	case strings.Contains(host, ".page"):
		env = strings.Replace(env, "author", cfg.Page, 1)
	}
	return strings.TrimRight(env, "/")
}

// UseGraphQL runs the persisted query at queryPath with the optional param
// suffix against the resolved environment. Publish origins are queried
// without credentials. Failures are logged and returned.
func (c *Client) UseGraphQL(ctx context.Context, queryPath, param string) (*Result, error) {
	env, err := c.Environment(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to resolve content environment", logfields.URL(c.origin), logfields.Error(err))
		return nil, err
	}

	target := env + queryPath + param
	var data json.RawMessage
	if err := c.fetchJSON(ctx, target, &data, !strings.Contains(env, "publish")); err != nil {
		c.logger.ErrorContext(ctx, "Content query failed", logfields.URL(target), logfields.Error(err))
		return nil, err
	}
	return &Result{Data: data, Env: env}, nil
}
