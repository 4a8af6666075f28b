// Package ui holds the human-facing output of the tap. Standard output is
// reserved for Singer messages, so everything here writes to standard error.
package ui
