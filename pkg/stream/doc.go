// Package stream declares the Instagram streams and links them into a graph.
//
// Each Definition names a request path template, a record selector, primary
// keys, a schema and optionally a parent. Child streams read their path
// variables from the Context that the parent derives from each of its
// records:
//
//	facebook pages      /me/accounts          -> {account_id}
//	instagram accounts  /{account_id}         -> {instagram_id}
//	media               /{instagram_id}
//	stories             /{instagram_id}
//
// NewRegistry compiles everything once at startup, so a bad template,
// selector or parent reference fails before any request is made.
package stream
