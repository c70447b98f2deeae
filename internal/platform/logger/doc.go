// Package logger provides structured logging functionality for the application
// using Go's standard library log/slog package.
//
// Setup builds the process logger from ServerConfig and installs it as the
// slog default. WithLogger and FromContext carry request-scoped loggers
// through a context.Context.
package logger
