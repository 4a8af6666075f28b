// Package graph is the HTTP layer of the tap: a Facebook Graph API client
// and a paginator for partitioned stream requests.
//
// Requests carry the access token as a bearer header, are paced by a token
// bucket and by the usage headers the API returns, and are retried with
// exponential backoff when the failure is transient. Graph error envelopes
// are mapped to *errors.FetchError:
//
//	codes 4, 17, 32, 613 or HTTP 429  -> rate_limit
//	code 190 or HTTP 401, 403         -> auth
//	HTTP 404                          -> not_found
//	HTTP 5xx                          -> server_error
//
// Response bodies are decoded with json.Number preserved. A body that is not
// JSON yields a parsing FetchError.
package graph
