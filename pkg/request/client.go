package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"climatelens/pkg/logging"
	"climatelens/pkg/tracker"
	"climatelens/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("ClimateLens/%s (+https://github.com/climatelens)", version.Version)

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

// StatusError is returned when the remote side answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: status %d", e.Code)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client performs tracked outbound HTTP requests.
// Each call is a single attempt; callers decide what a failure means.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	userAgent  string
}

// New creates a new Client. A zero timeout means 30 seconds.
func New(t *tracker.Tracker, timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if t == nil {
		t = tracker.New()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		tracker:    t,
		userAgent:  userAgent,
	}
}

// Tracker returns the stats tracker the client reports to.
func (c *Client) Tracker() *tracker.Tracker {
	return c.tracker
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, u string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil)
}

// GetWithHeaders performs a GET request with custom headers.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, headers)
}

// Post performs a POST request with the given content type.
func (c *Client) Post(ctx context.Context, u string, body []byte, contentType string) ([]byte, error) {
	return c.PostWithHeaders(ctx, u, body, map[string]string{"Content-Type": contentType})
}

// PostWithHeaders performs a POST request with custom headers.
func (c *Client) PostWithHeaders(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, headers)
}

func (c *Client) do(req *http.Request, headers map[string]string) ([]byte, error) {
	provider := normalizeProvider(req.URL.Host)

	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.tracker.TrackAPIFailure(provider)
		logRequest(req, 0, time.Since(start), err)
		// Prefer the caller's cancellation over the transport's wrapped error
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	logRequest(req, resp.StatusCode, time.Since(start), err)
	if err != nil {
		c.tracker.TrackAPIFailure(provider)
		return nil, fmt.Errorf("read error: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.tracker.TrackAPIFailure(provider)
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(strings.TrimSpace(string(body)), 200)}
	}

	c.tracker.TrackAPISuccess(provider)
	return body, nil
}

func logRequest(req *http.Request, status int, elapsed time.Duration, err error) {
	l := logging.RequestLogger
	if l == nil {
		return
	}
	attrs := []any{
		"method", req.Method,
		"url", redact(req.URL),
		"status", status,
		"duration", elapsed.Round(time.Millisecond),
	}
	if err != nil {
		l.Warn("Request failed", append(attrs, "error", err)...)
		return
	}
	l.Info("Request", attrs...)
}

// redact hides credentials passed as query parameters.
func redact(u *url.URL) string {
	q := u.Query()
	for _, k := range []string{"appid", "key", "api_key", "token"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}

func normalizeProvider(host string) string {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	switch {
	case strings.HasSuffix(host, "openweathermap.org"):
		return "openweather"
	case strings.HasSuffix(host, "googleapis.com"):
		return "gemini"
	case host == "ip-api.com" || strings.HasSuffix(host, ".ip-api.com"):
		return "ip-api"
	case strings.Contains(host, "groq.com"):
		return "groq"
	}
	if host == "" {
		slog.Debug("Request without host")
	}
	return host
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
