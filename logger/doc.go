// Package logger provides structured logging for vidpipe using zerolog.
//
// Loggers are scoped per component and carry structured fields as maps:
//
//	log := logger.WithComponent("lifecycle")
//	log.Info("Execution started", logger.Fields(logger.FieldNodeID, id))
package logger
