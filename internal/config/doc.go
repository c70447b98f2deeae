// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. It provides
// type-safe access to the settings needed by the queue, the analyzer
// backends and the HTTP server.
package config
