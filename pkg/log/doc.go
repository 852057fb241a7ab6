// Package log provides EduBot's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Output is produced through a
// Formatter (text or JSON) and one or more Outputs (console by default).
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("directory"), log.Str("guild", "aerospace"))
//	l.Info("queue loaded", log.Int("entries", 12))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config (level and
// format strings, typically sourced from the application configuration).
//
// # Interop
//
// To capture output from libraries using the standard library logger (such as
// Pebble), use RedirectStdLog.
package log
