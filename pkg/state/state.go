package state

import (
	"sync"

	"tap-instagram/pkg/stream"
)

// State is the value of a STATE message. Streams are full refresh, so it
// records which partitions finished rather than replication bookmarks.
type State struct {
	Bookmarks map[string]*StreamState `json:"bookmarks"`
}

// StreamState lists the completed partitions of one stream
type StreamState struct {
	Partitions []Partition `json:"partitions"`
}

// Partition identifies one child request by the context that seeded it
type Partition struct {
	Context stream.Context `json:"context"`
}

// New returns an empty state
func New() *State {
	return &State{Bookmarks: map[string]*StreamState{}}
}

// Clone returns a deep copy
func (s *State) Clone() *State {
	out := New()
	for name, ss := range s.Bookmarks {
		if ss == nil {
			continue
		}
		parts := make([]Partition, len(ss.Partitions))
		for i, p := range ss.Partitions {
			parts[i] = Partition{Context: p.Context.Clone()}
		}
		out.Bookmarks[name] = &StreamState{Partitions: parts}
	}
	return out
}

// PartitionCount returns the number of partitions recorded across all streams
func (s *State) PartitionCount() int {
	n := 0
	for _, ss := range s.Bookmarks {
		if ss != nil {
			n += len(ss.Partitions)
		}
	}
	return n
}

// Tracker accumulates partition progress during a sync
type Tracker struct {
	mu    sync.Mutex
	state *State
	seen  map[string]map[string]bool
}

// NewTracker starts tracking from an empty state
func NewTracker() *Tracker {
	return &Tracker{state: New(), seen: map[string]map[string]bool{}}
}

// Complete records that a stream finished the partition seeded by ctx.
// Root streams have no context and are recorded as a single empty partition.
func (t *Tracker) Complete(streamName string, ctx stream.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := ctx.String()
	if t.seen[streamName] == nil {
		t.seen[streamName] = map[string]bool{}
	}
	if t.seen[streamName][key] {
		return
	}
	t.seen[streamName][key] = true

	ss := t.state.Bookmarks[streamName]
	if ss == nil {
		ss = &StreamState{}
		t.state.Bookmarks[streamName] = ss
	}
	c := ctx.Clone()
	if c == nil {
		c = stream.Context{}
	}
	ss.Partitions = append(ss.Partitions, Partition{Context: c})
}

// Snapshot returns a copy of the current state, safe to hand to a writer
func (t *Tracker) Snapshot() *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}
