package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TAGGER_SERVER_PORT.
const EnvPrefix = "TAGGER"

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load configuration from environment variables and optionally a config
// file named config.yaml in the working directory. Environment variables
// take precedence over values from the file.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path looks
// for config.yaml in the working directory and tolerates its absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDerivedDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the rules that span sections.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.Queue.Backend == BackendPostgres && cfg.Database.URL == "" {
		return fmt.Errorf("%w: database.url is required for the postgres queue backend", ErrInvalidConfig)
	}
	switch cfg.Analyzer.Provider {
	case ProviderGemini:
		if cfg.Analyzer.GeminiAPIKey == "" {
			return fmt.Errorf("%w: analyzer.gemini_api_key is required for the gemini provider", ErrInvalidConfig)
		}
	case ProviderOllama:
		if cfg.Analyzer.OllamaHost == "" {
			return fmt.Errorf("%w: analyzer.ollama_host is required for the ollama provider", ErrInvalidConfig)
		}
	}
	return nil
}

// every key needs a default so AutomaticEnv can see it during Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.auto_start", false)

	v.SetDefault("queue.state_dir", ".")
	v.SetDefault("queue.backend", BackendFile)
	v.SetDefault("queue.save_interval", "500ms")

	v.SetDefault("database.url", "")

	v.SetDefault("analyzer.provider", ProviderOllama)
	v.SetDefault("analyzer.model", "")
	v.SetDefault("analyzer.ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("analyzer.gemini_api_key", "")
	v.SetDefault("analyzer.request_timeout", "5m")
	v.SetDefault("analyzer.max_retries", 2)
	v.SetDefault("analyzer.expected_tokens", 80)
}

func applyDerivedDefaults(cfg *Config) {
	if cfg.Analyzer.Model != "" {
		return
	}
	switch cfg.Analyzer.Provider {
	case ProviderGemini:
		cfg.Analyzer.Model = DefaultGeminiModel
	default:
		cfg.Analyzer.Model = DefaultOllamaModel
	}
}
