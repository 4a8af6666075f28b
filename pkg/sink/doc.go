// Package sink delivers tap messages to their destination.
//
// The stdout sink is the standard Singer behaviour: every message becomes a
// JSON line for a downstream target. The jsonl sink writes record files per
// stream into a directory and the sqlite sink upserts records into a local
// database (modernc.org/sqlite, no cgo).
package sink
