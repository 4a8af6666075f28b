// Package ratelimit keeps the tap inside the Graph API quota.
//
// TokenBucket spaces requests to a configured rate using
// golang.org/x/time/rate. UsageThrottle reads the X-App-Usage and
// X-Business-Use-Case-Usage response headers and pauses all requests for a
// cooldown when the reported usage gets close to 100 percent.
package ratelimit
