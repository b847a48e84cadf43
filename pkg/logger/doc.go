// Package logger provides a structured logging interface for itcharchive.
//
// It wraps zerolog behind a small Logger interface so the scraper, the HTTP
// API and the tests can share one calling convention:
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("creator", creator).Info("Starting archive run")
//	logger.GetLogger().WarnWithFields("Asset skipped", map[string]interface{}{
//	    "url": assetURL,
//	})
//
// Console output is written to stderr with colour. When LoggingConfig.File is
// set, JSON lines are appended to that file as well.
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
