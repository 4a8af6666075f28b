// Package tap syncs the Instagram stream graph.
//
// A sync first emits one SCHEMA message per selected stream, then walks the
// graph depth first starting at each root stream. Every record is emitted
// before the partitions of its children, and children are visited in the
// order they were declared:
//
//	facebook pages -> instagram accounts -> media
//	                                     -> stories
//
// A STATE message follows each root record's subtree and closes the run.
// The tap only does full refreshes, so the state lists completed partitions
// rather than bookmarks.
//
// A missing access token, a malformed path template or a record that lacks
// the field seeding a child context are configuration errors and map to exit
// code 2. Fetch failures surface after the HTTP layer's retries and map to
// exit code 1, as does a response body that is not JSON.
package tap
