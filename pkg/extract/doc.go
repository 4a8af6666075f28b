// Package extract locates records inside Graph API responses.
//
// A Selector is compiled once from a JSONPath expression such as
// "$.media.data[*]" and then applied to decoded documents. Results are
// produced lazily as iter.Seq values in source order. A path that does not
// exist in the document yields nothing rather than an error, since the Graph
// API leaves out empty collections.
package extract
