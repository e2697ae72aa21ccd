// Package logger provides structured logging functionality for the blackout project.
//
// Features:
//   - Multiple log levels (TRACE, DEBUG, INFO, WARN, ERROR)
//   - Component-based filtering
//   - Multiple output formats (text, JSON, color)
//   - Thread-safe operations
//
// Usage:
//
//	log := logger.WithComponent(logger.ComponentResolver)
//
//	log.Info("Loaded blocked videos", map[string]interface{}{
//		"playlist": "PLxxxx",
//		"videos":   42,
//	})
//
//	config := logger.DefaultConfig()
//	config.Level = logger.DEBUG
//	config.Format = logger.FormatJSON
//	logger.SetGlobalLogger(logger.New(config))
//
// Components:
//   - ComponentApp: CLI and process lifecycle
//   - ComponentResolver: playlist page fetch and id extraction
//   - ComponentScanner: per-element suppression decisions
//   - ComponentSession: session loop, triggers and re-scans
//   - ComponentClient: HTTP client retries
//   - ComponentScript: scripted title rewrite rules
//   - ComponentProxy: filtering HTTP proxy
//   - ComponentWatch: file watcher host
package logger
