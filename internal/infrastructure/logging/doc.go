// Package logging provides structured logging for Haven Core.
//
// It wraps log/slog with the service's defaults: JSON output for
// production, text for development, level filtering, and service/version
// fields on every entry.
//
// Configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("starting service", "port", 8080)
//	logger.Error("failed to connect", "error", err)
//
// Never log secrets: the hub redacts updatePassword parameters before they
// reach any log or journal.
package logging
