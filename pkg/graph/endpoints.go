package graph

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBaseURL is the Graph API host
	DefaultBaseURL = "https://graph.facebook.com"

	// DefaultVersion is the Graph API version used when none is configured
	DefaultVersion = "v19.0"
)

// Graph API error codes that signal throttling
var rateLimitCodes = map[int]bool{
	4:   true, // application request limit
	17:  true, // user request limit
	32:  true, // page request limit
	613: true, // calls within one hour exceeded
}

const codeInvalidToken = 190

// VersionedURL joins the API host and version
func VersionedURL(base, version string) (string, error) {
	if base == "" {
		base = DefaultBaseURL
	}
	if version == "" {
		version = DefaultVersion
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid Graph API base URL %q", base)
	}
	return u.String() + "/" + strings.Trim(version, "/"), nil
}

// ResolvePath appends a request path, which may carry a query string, to the versioned base
func ResolvePath(versioned, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return versioned + path
}

// RedactURL hides access tokens that the API echoes into paging links
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("access_token") == "" {
		return raw
	}
	q.Set("access_token", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
