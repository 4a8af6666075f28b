// Package schema declares stream record layouts and renders them as JSON
// Schema for SCHEMA messages and catalogs.
//
// Field types form a closed set: string, integer, datetime, array and
// object. Property order is kept exactly as declared. Records are checked
// leniently: Checker describes mismatches but nothing is ever rejected.
package schema
