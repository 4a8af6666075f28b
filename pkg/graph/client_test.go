package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tap-instagram/pkg/config"
	errs "tap-instagram/pkg/errors"
	"tap-instagram/pkg/logger"
	"tap-instagram/pkg/ratelimit"
	"tap-instagram/pkg/retry"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	return cfg
}

func fastRetry(attempts int) *retry.Config {
	return &retry.Config{
		MaxAttempts: attempts,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     retry.DefaultRetryIf,
	}
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLimiter(ratelimit.Unlimited{}), WithRetry(fastRetry(3))}, opts...)
	client, err := NewClient(testConfig(baseURL), "secret-token", logger.NewTestLogger(), opts...)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(config.DefaultConfig(), "", logger.NewTestLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrMissingRequiredConfig)
	assert.True(t, errs.IsConfiguration(err))
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(testConfig("not a url"), "token", logger.NewTestLogger())
	assert.True(t, errs.IsConfiguration(err))
}

func TestFetchPageSendsBearerAndVersion(t *testing.T) {
	var gotAuth, gotPath, gotFields string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotFields = r.URL.Query().Get("fields")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"instagram_business_account":{"id":"ig_7"},"id":"42"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	page, err := client.FetchPage(context.Background(), "/42?fields=instagram_business_account")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "/v19.0/42", gotPath)
	assert.Equal(t, "instagram_business_account", gotFields)

	doc := page.Doc.(map[string]interface{})
	assert.Equal(t, "42", doc["id"])
}

func TestFetchPagePreservesNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"1","like_count":9007199254740993}]}`))
	}))
	defer server.Close()

	page, err := newTestClient(t, server.URL).FetchPage(context.Background(), "/me/accounts")
	require.NoError(t, err)

	rec := page.Doc.(map[string]interface{})["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, json.Number("9007199254740993"), rec["like_count"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType errs.ErrorType
	}{
		{"invalid token", 400, `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190,"fbtrace_id":"Abc"}}`, errs.ErrorTypeAuth},
		{"app limit", 400, `{"error":{"message":"Application request limit reached","code":4}}`, errs.ErrorTypeRateLimit},
		{"user limit", 403, `{"error":{"message":"User request limit reached","code":17}}`, errs.ErrorTypeRateLimit},
		{"too many requests", 429, ``, errs.ErrorTypeRateLimit},
		{"unauthorized", 401, ``, errs.ErrorTypeAuth},
		{"forbidden", 403, `{"error":{"message":"Permissions error","code":10}}`, errs.ErrorTypeAuth},
		{"not found", 404, `{"error":{"message":"Unsupported get request","code":100}}`, errs.ErrorTypeNotFound},
		{"server", 503, `oops`, errs.ErrorTypeServerError},
		{"bad request", 400, `{"error":{"message":"Invalid parameter","code":100}}`, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, DefaultBaseURL,
				WithRetry(fastRetry(1)),
				WithHTTPClient(&http.Client{Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
					resp := newResponse(tt.status, tt.body)
					resp.Request = req
					return resp, nil
				}}}))

			_, err := client.FetchPage(context.Background(), "/me/accounts")
			fetchErr, ok := errs.AsFetch(err)
			require.True(t, ok, "expected FetchError, got %v", err)
			assert.Equal(t, tt.wantType, fetchErr.Type)
			assert.Equal(t, tt.status, fetchErr.Code)
		})
	}
}

func TestErrorMessageCarriesGraphDetails(t *testing.T) {
	client := newTestClient(t, DefaultBaseURL, WithHTTPClient(&http.Client{Transport: &mockRoundTripper{
		handler: func(req *http.Request) (*http.Response, error) {
			return newResponse(400, `{"error":{"message":"Invalid OAuth access token.","code":190,"fbtrace_id":"Trace1"}}`), nil
		},
	}}))

	_, err := client.FetchPage(context.Background(), "/me/accounts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(#190) Invalid OAuth access token.")
	assert.Contains(t, err.Error(), "fbtrace_id=Trace1")
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchPage(context.Background(), "/me/accounts")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoesNotRetryAuthErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"expired","code":190}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchPage(context.Background(), "/me/accounts")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvalidJSONIsParsingError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchPage(context.Background(), "/me/accounts")
	fetchErr, ok := errs.AsFetch(err)
	require.True(t, ok)
	assert.Equal(t, errs.ErrorTypeParsing, fetchErr.Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "parsing errors are not retried")
}

func TestNetworkError(t *testing.T) {
	client := newTestClient(t, DefaultBaseURL,
		WithRetry(fastRetry(1)),
		WithHTTPClient(&http.Client{Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			return nil, io.ErrUnexpectedEOF
		}}}))

	_, err := client.FetchPage(context.Background(), "/me/accounts")
	fetchErr, ok := errs.AsFetch(err)
	require.True(t, ok)
	assert.Equal(t, errs.ErrorTypeNetwork, fetchErr.Type)
}

func TestUsageHeadersAreObserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ratelimit.HeaderAppUsage, `{"call_count":42,"total_time":10,"total_cputime":5}`)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchPage(context.Background(), "/me/accounts")
	require.NoError(t, err)
	assert.Equal(t, 42.0, client.Usage().CallCount)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 30*time.Second, parseRetryAfter("30", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-5", now))
	assert.Equal(t, 2*time.Minute, parseRetryAfter("Mon, 01 Jan 2024 12:02:00 GMT", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
}

func TestVersionedURL(t *testing.T) {
	got, err := VersionedURL("https://graph.facebook.com/", "v20.0")
	require.NoError(t, err)
	assert.Equal(t, "https://graph.facebook.com/v20.0", got)

	got, err = VersionedURL("", "")
	require.NoError(t, err)
	assert.Equal(t, "https://graph.facebook.com/v19.0", got)

	_, err = VersionedURL("graph.facebook.com", "v19.0")
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	redacted := RedactURL("https://graph.facebook.com/v19.0/1/media?access_token=abc&after=XYZ")
	assert.NotContains(t, redacted, "abc")
	assert.Contains(t, redacted, "after=XYZ")

	plain := "https://graph.facebook.com/v19.0/me/accounts"
	assert.Equal(t, plain, RedactURL(plain))
}

func TestFetchURLRefusesForeignOrigin(t *testing.T) {
	var calls int32
	client := newTestClient(t, DefaultBaseURL, WithHTTPClient(&http.Client{Transport: &mockRoundTripper{
		handler: func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return newResponse(http.StatusOK, `{"data":[]}`), nil
		},
	}}))

	for _, link := range []string{
		"https://attacker.example/v19.0/me/accounts?after=c2&access_token=leak",
		"http://graph.facebook.com/v19.0/me/accounts?after=c2",
		"/v19.0/me/accounts?after=c2",
	} {
		_, err := client.FetchURL(context.Background(), link)
		require.Error(t, err, link)
		fetchErr, ok := errs.AsFetch(err)
		require.True(t, ok, link)
		assert.False(t, errs.IsRetryable(fetchErr.Type))
		assert.NotContains(t, err.Error(), "leak")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	_, err := client.FetchURL(context.Background(), "https://Graph.Facebook.com/v19.0/me/accounts?after=c2")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
