// Package singer defines the tap's output envelope: SCHEMA, RECORD and
// STATE messages written one JSON object per line, plus the catalog
// emitted by discovery.
package singer
