// Package logger provides the structured logging facade used across the tap.
//
// It wraps zerolog and always writes to stderr (pretty console output by
// default, JSON lines with format "json") and optionally to a log file as
// well. Stdout belongs to the Singer message stream and is never touched.
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("stream", "media").Info("Stream sync started")
//
// TestLogger captures messages in memory for assertions in tests.
package logger
