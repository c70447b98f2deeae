package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format"       validate:"required,oneof=json text"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// AutoStart starts the worker at boot when restored work is pending
	AutoStart bool `mapstructure:"auto_start"`
}

// Snapshot storage backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// QueueConfig contains queue persistence settings.
type QueueConfig struct {
	// StateDir holds the snapshot file for the file backend, normally the
	// folder whose images are being analyzed
	StateDir     string        `mapstructure:"state_dir"     validate:"required"`
	Backend      string        `mapstructure:"backend"       validate:"required,oneof=file postgres"`
	SaveInterval time.Duration `mapstructure:"save_interval" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// Analyzer providers
const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

// Default model per provider
const (
	DefaultOllamaModel = "gemma3:4b"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// AnalyzerConfig contains vision model settings.
type AnalyzerConfig struct {
	Provider       string        `mapstructure:"provider"        validate:"required,oneof=ollama gemini"`
	Model          string        `mapstructure:"model"`
	OllamaHost     string        `mapstructure:"ollama_host"     validate:"omitempty,url"`
	GeminiAPIKey   string        `mapstructure:"gemini_api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxRetries     int           `mapstructure:"max_retries"     validate:"gte=0,lte=10"`
	ExpectedTokens int           `mapstructure:"expected_tokens" validate:"gte=0"`
}
