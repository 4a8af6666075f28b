// Package state tracks sync progress and persists it between runs.
//
// Every stream is full refresh, so the state holds no replication
// bookmarks. Instead each stream lists the partitions (child contexts) it
// completed:
//
//	{"bookmarks": {"media": {"partitions": [{"context": {"instagram_id": "ig_7"}}]}}}
//
// Manager writes the state file through a temporary file and a rename so an
// interrupted run never leaves a truncated file behind.
package state
