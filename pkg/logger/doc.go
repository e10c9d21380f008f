// Package logger provides the structured logging interface used across the
// dataset pipeline.
//
// It wraps zerolog with a small interface so components can take a Logger as
// a dependency and tests can substitute NewTestLogger or NewNopLogger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//		return err
//	}
//	log := logger.GetLogger().WithField("project", "SPARK")
//	log.Info("Starting partition")
//
// Helpers such as LogRequest, LogPageSaved and LogStageSummary keep field
// names consistent between the HTTP transport, the scraper and the CLI.
package logger
