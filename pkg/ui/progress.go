package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// StreamCount is the per-stream tally reported at the end of a run.
type StreamCount struct {
	Stream     string
	Records    int
	Pages      int
	Mismatches int
}

// StatusTracker counts records and pages per stream. Safe for concurrent use.
type StatusTracker struct {
	mu        sync.Mutex
	startTime time.Time
	order     []string
	counts    map[string]*StreamCount
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		startTime: time.Now(),
		counts:    make(map[string]*StreamCount),
	}
}

func (st *StatusTracker) entry(stream string) *StreamCount {
	c, ok := st.counts[stream]
	if !ok {
		c = &StreamCount{Stream: stream}
		st.counts[stream] = c
		st.order = append(st.order, stream)
	}
	return c
}

// IncrementRecords counts one emitted record
func (st *StatusTracker) IncrementRecords(stream string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.entry(stream).Records++
}

// IncrementPages counts one fetched page
func (st *StatusTracker) IncrementPages(stream string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.entry(stream).Pages++
}

// AddMismatches counts schema mismatches reported for a record
func (st *StatusTracker) AddMismatches(stream string, n int) {
	if n == 0 {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.entry(stream).Mismatches += n
}

// Records returns the record count for stream
func (st *StatusTracker) Records(stream string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	if c, ok := st.counts[stream]; ok {
		return c.Records
	}
	return 0
}

// Total returns the number of records across streams
func (st *StatusTracker) Total() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	total := 0
	for _, c := range st.counts {
		total += c.Records
	}
	return total
}

// Elapsed returns the time since tracking started
func (st *StatusTracker) Elapsed() time.Duration {
	return time.Since(st.startTime)
}

// Rate returns records per minute
func (st *StatusTracker) Rate() float64 {
	elapsed := st.Elapsed().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Total()) / elapsed
}

// Summary returns the counts in first-seen order
func (st *StatusTracker) Summary() []StreamCount {
	st.mu.Lock()
	defer st.mu.Unlock()
	summary := make([]StreamCount, 0, len(st.order))
	for _, name := range st.order {
		summary = append(summary, *st.counts[name])
	}
	return summary
}

// WriteSummary renders the per-stream table to w
func (st *StatusTracker) WriteSummary(w io.Writer) {
	summary := st.Summary()
	width := len("stream")
	for _, c := range summary {
		width = max(width, len(c.Stream))
	}

	fmt.Fprintf(w, "%s\n", Magenta("[SYNC COMPLETE]"))
	fmt.Fprintf(w, "  %-*s %8s %6s %10s\n", width, "stream", "records", "pages", "mismatches")
	fmt.Fprintf(w, "  %s\n", Dim(strings.Repeat("-", width+27)))
	for _, c := range summary {
		fmt.Fprintf(w, "  %-*s %8d %6d %10d\n", width, c.Stream, c.Records, c.Pages, c.Mismatches)
	}
	fmt.Fprintf(w, "  %s %d records in %s\n", Green("total"), st.Total(), st.Elapsed().Round(time.Millisecond))
}

// PrintSummary writes the summary to the ui output unless quiet
func (st *StatusTracker) PrintSummary() {
	st.WriteSummary(Writer())
}
