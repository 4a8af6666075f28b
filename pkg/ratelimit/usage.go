package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const (
	HeaderAppUsage        = "X-App-Usage"
	HeaderBusinessUseCase = "X-Business-Use-Case-Usage"
	HeaderInstagramUsage  = "X-Ig-Business-Use-Case-Usage"
)

// Usage is the percentage of the Graph API quota consumed, as reported by response headers
type Usage struct {
	CallCount    float64 `json:"call_count"`
	TotalCPUTime float64 `json:"total_cputime"`
	TotalTime    float64 `json:"total_time"`
	// EstimatedTimeToRegainAccess is in minutes and only set on business use case usage
	EstimatedTimeToRegainAccess int `json:"estimated_time_to_regain_access"`
}

// Max returns the highest of the three reported percentages
func (u Usage) Max() float64 {
	m := u.CallCount
	if u.TotalCPUTime > m {
		m = u.TotalCPUTime
	}
	if u.TotalTime > m {
		m = u.TotalTime
	}
	return m
}

// ParseUsage reads the usage headers from a Graph API response.
// Malformed headers are ignored.
func ParseUsage(header http.Header) (Usage, bool) {
	var worst Usage
	found := false

	if raw := header.Get(HeaderAppUsage); raw != "" {
		var u Usage
		if json.Unmarshal([]byte(raw), &u) == nil {
			worst = merge(worst, u)
			found = true
		}
	}

	for _, name := range []string{HeaderBusinessUseCase, HeaderInstagramUsage} {
		raw := header.Get(name)
		if raw == "" {
			continue
		}
		var byBusiness map[string][]Usage
		if json.Unmarshal([]byte(raw), &byBusiness) != nil {
			continue
		}
		for _, entries := range byBusiness {
			for _, u := range entries {
				worst = merge(worst, u)
				found = true
			}
		}
	}

	return worst, found
}

func merge(a, b Usage) Usage {
	if b.Max() > a.Max() {
		regain := a.EstimatedTimeToRegainAccess
		a = b
		if regain > a.EstimatedTimeToRegainAccess {
			a.EstimatedTimeToRegainAccess = regain
		}
		return a
	}
	if b.EstimatedTimeToRegainAccess > a.EstimatedTimeToRegainAccess {
		a.EstimatedTimeToRegainAccess = b.EstimatedTimeToRegainAccess
	}
	return a
}

// UsageThrottle pauses requests once reported quota usage crosses a threshold
type UsageThrottle struct {
	threshold float64
	cooldown  time.Duration
	now       func() time.Time

	mu         sync.Mutex
	pauseUntil time.Time
	last       Usage
}

// NewUsageThrottle creates a throttle that pauses for cooldown once usage reaches threshold percent.
// A threshold of zero disables throttling.
func NewUsageThrottle(threshold float64, cooldown time.Duration) *UsageThrottle {
	return &UsageThrottle{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Observe records usage from response headers and returns the pause it scheduled, if any
func (t *UsageThrottle) Observe(header http.Header) time.Duration {
	usage, ok := ParseUsage(header)
	if !ok {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = usage

	if t.threshold <= 0 || usage.Max() < t.threshold {
		return 0
	}

	pause := t.cooldown
	if regain := time.Duration(usage.EstimatedTimeToRegainAccess) * time.Minute; regain > pause {
		pause = regain
	}
	until := t.now().Add(pause)
	if until.After(t.pauseUntil) {
		t.pauseUntil = until
	}
	return pause
}

// Last returns the most recently observed usage
func (t *UsageThrottle) Last() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Wait blocks while a pause is in effect
func (t *UsageThrottle) Wait(ctx context.Context) error {
	t.mu.Lock()
	remaining := t.pauseUntil.Sub(t.now())
	t.mu.Unlock()

	if remaining <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
