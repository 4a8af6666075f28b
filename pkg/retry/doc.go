// Package retry runs Graph API requests again when they fail transiently.
//
// Network, rate limit and server errors are retried with exponential
// backoff. When the server names a Retry-After delay that is longer than
// the computed backoff, the server's value wins. Authentication, not found,
// configuration and extraction errors are returned immediately.
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	page, err := retry.DoWithResult(ctx, func(ctx context.Context) (*Page, error) {
//		return client.fetchOnce(ctx, url)
//	}, cfg)
package retry
