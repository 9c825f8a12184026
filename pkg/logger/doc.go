// Package logger provides structured logging for the archiver.
//
// It wraps zerolog behind a small interface with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors
// - An optional append-only log file next to the archive
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "github.com/compmonks/instArchiver/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File:  "InstagramArchive/archive.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Archive run started")
//	logger.WithField("media_id", id).Info("Item archived")
//	logger.WithError(err).Error("Failed to download asset")
//
// Token values never reach the log stream: callers redact URLs before
// passing them in (see the graph package's RedactURL).
package logger
