package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tap-instagram/pkg/config"
	errs "tap-instagram/pkg/errors"
	"tap-instagram/pkg/extract"
	"tap-instagram/pkg/logger"
	"tap-instagram/pkg/ratelimit"
	"tap-instagram/pkg/retry"
)

// maxErrorBody bounds how much of an error response is read for diagnostics
const maxErrorBody = 64 << 10

// Page is one decoded Graph API response
type Page struct {
	URL    string
	Doc    interface{}
	Header http.Header
}

// Fetcher is the HTTP capability the tap drives
type Fetcher interface {
	// FetchPage requests a path relative to the versioned API root
	FetchPage(ctx context.Context, path string) (*Page, error)
	// FetchURL requests an absolute URL, as handed out in paging links
	FetchURL(ctx context.Context, rawURL string) (*Page, error)
}

// Client talks to the Graph API with bearer authentication
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	origin     string
	limiter    ratelimit.Limiter
	throttle   *ratelimit.UsageThrottle
	retry      *retry.Config
	logger     logger.Logger
}

var _ Fetcher = (*Client)(nil)

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter replaces the request pacing limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry replaces the retry policy
func WithRetry(r *retry.Config) Option {
	return func(c *Client) { c.retry = r }
}

// NewClient creates a Graph API client. An empty token is a configuration error.
func NewClient(cfg *config.Config, token string, log logger.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errs.MissingRequiredConfig("access_token")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	base, err := VersionedURL(cfg.API.BaseURL, cfg.API.Version)
	if err != nil {
		return nil, errs.NewConfigurationError("api.base_url", "%v", err)
	}
	origin, err := originOf(base)
	if err != nil {
		return nil, errs.NewConfigurationError("api.base_url", "%v", err)
	}

	userAgent := cfg.API.UserAgent
	if userAgent == "" {
		userAgent = "tap-instagram/1.0"
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.API.Timeout},
		headers: map[string]string{
			"Authorization": "Bearer " + token,
			"Accept":        "application/json",
			"User-Agent":    userAgent,
		},
		baseURL:  base,
		origin:   origin,
		limiter:  ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
		throttle: ratelimit.NewUsageThrottle(cfg.RateLimit.UsageThreshold, cfg.RateLimit.UsageCooldown),
		retry:    retry.FromConfig(cfg.Retry, log),
		logger:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the versioned API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Usage returns the quota usage last reported by the API
func (c *Client) Usage() ratelimit.Usage {
	return c.throttle.Last()
}

// FetchPage requests a path relative to the versioned API root
func (c *Client) FetchPage(ctx context.Context, path string) (*Page, error) {
	return c.FetchURL(ctx, ResolvePath(c.baseURL, path))
}

// FetchURL requests an absolute URL with retry and rate limiting. URLs outside
// the API origin are refused so the bearer token is only sent to the Graph API.
func (c *Client) FetchURL(ctx context.Context, rawURL string) (*Page, error) {
	if origin, err := originOf(rawURL); err != nil || origin != c.origin {
		return nil, &errs.FetchError{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("refusing to follow %s outside %s", RedactURL(rawURL), c.origin),
		}
	}
	return retry.DoWithResult(ctx, func(ctx context.Context) (*Page, error) {
		return c.fetchOnce(ctx, rawURL)
	}, c.retry)
}

// originOf returns the scheme and host of an absolute URL
func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %s", RedactURL(rawURL))
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &errs.FetchError{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if pause := c.throttle.Observe(resp.Header); pause > 0 {
		c.logger.WarnWithFields("API usage near limit, pausing requests", map[string]interface{}{
			"usage_percent": c.throttle.Last().Max(),
			"pause":         pause,
		})
	}

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	doc, err := extract.Decode(resp.Body)
	if err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":    RedactURL(rawURL),
			"status": resp.StatusCode,
			"error":  err.Error(),
		})
		return nil, &errs.FetchError{
			Type:    errs.ErrorTypeParsing,
			Message: err.Error(),
			Code:    resp.StatusCode,
		}
	}

	return &Page{URL: rawURL, Doc: doc, Header: resp.Header}, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	logURL := RedactURL(req.URL.String())
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    logURL,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      logURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.FetchError{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      logURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// apiError is the error envelope returned by the Graph API
type apiError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// checkResponseStatus maps non-2xx responses to typed fetch errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope apiError
	_ = json.Unmarshal(body, &envelope)
	apiCode := envelope.Error.Code

	message := envelope.Error.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if apiCode != 0 {
		message = fmt.Sprintf("(#%d) %s", apiCode, message)
	}
	if envelope.Error.FBTraceID != "" {
		message = fmt.Sprintf("%s [fbtrace_id=%s]", message, envelope.Error.FBTraceID)
	}

	fetchErr := &errs.FetchError{
		Type:       classify(resp.StatusCode, apiCode),
		Message:    message,
		Code:       resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}

	fields := map[string]interface{}{
		"status":   resp.StatusCode,
		"api_code": apiCode,
		"type":     string(fetchErr.Type),
	}
	if resp.Request != nil {
		fields["url"] = RedactURL(resp.Request.URL.String())
	}
	switch fetchErr.Type {
	case errs.ErrorTypeServerError, errs.ErrorTypeUnknown:
		c.logger.ErrorWithFields("Graph API error", fields)
	default:
		c.logger.WarnWithFields("Graph API error", fields)
	}

	return fetchErr
}

func classify(status, apiCode int) errs.ErrorType {
	switch {
	case rateLimitCodes[apiCode] || status == http.StatusTooManyRequests:
		return errs.ErrorTypeRateLimit
	case apiCode == codeInvalidToken || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.ErrorTypeAuth
	case status == http.StatusNotFound:
		return errs.ErrorTypeNotFound
	case status >= 500:
		return errs.ErrorTypeServerError
	default:
		return errs.ErrorTypeUnknown
	}
}

// parseRetryAfter accepts delta seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
