// Package logger provides structured logging for the meetmind services
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Usage
//
//	log := logger.WithComponent("stt-engine")
//	log.Info("pass complete", logger.Fields(logger.FieldSessionID, id))
package logger
