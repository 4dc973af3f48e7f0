// Package config loads application configuration from the environment,
// with an optional config.yaml for local development.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Storage backend names accepted by STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendDynamoDB = "dynamodb"
)

// Config holds all application configuration.
type Config struct {
	// Server
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	Environment   string `mapstructure:"ENVIRONMENT"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`

	// Storage
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	SnapshotPath   string `mapstructure:"SNAPSHOT_PATH"` // memory backend; empty disables the snapshot file
	BadgerPath     string `mapstructure:"BADGER_PATH"`
	DynamoDBTable  string `mapstructure:"DYNAMODB_TABLE"`
	AWSRegion      string `mapstructure:"AWS_REGION"`

	// Enrichment service (any OpenAI-compatible endpoint)
	LLMBaseURL string `mapstructure:"LLM_BASE_URL"`
	LLMModel   string `mapstructure:"LLM_MODEL"`
	LLMAPIKey  string `mapstructure:"LLM_API_KEY"`

	// CORS
	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Load reads configuration from config.yaml (if present) and the
// environment, environment taking precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("SNAPSHOT_PATH", "thoughts.json")
	v.SetDefault("BADGER_PATH", "./data/badger")
	v.SetDefault("DYNAMODB_TABLE", "thoughts")
	v.SetDefault("AWS_REGION", "us-west-2")
	v.SetDefault("LLM_BASE_URL", "")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; the environment covers everything.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend selection and its required settings.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendBadger:
		if c.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required for the badger backend")
		}
	case BackendDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
