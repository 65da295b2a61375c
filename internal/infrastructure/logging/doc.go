// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Log Levels:
//   - Debug: Verbose debugging information
//   - Info: General informational messages
//   - Warn: Warning messages
//   - Error: Error messages
//
// Components receive a plain *zap.Logger named after themselves via
// Component, so every line carries a "component" field. The level can be
// changed at runtime with SetLevel.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	storeLog := logger.Component("store")
//	storeLog.Warn("Commit failed", zap.Error(err))
package logging
