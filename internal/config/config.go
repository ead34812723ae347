// Package config loads forge settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	envPrefix     = "FORGE"
	envConfigFile = "FORGE_CONFIG"
	// envThreads is the worker-count override understood by earlier
	// deployments. FORGE_WORKERS_COUNT wins when both are set.
	envThreads = "TP_NUM_OF_THREADS"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Workers WorkersConfig `mapstructure:"workers"`
	Store   StoreConfig   `mapstructure:"store"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// DatasetConfig locates the survey CSV.
type DatasetConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// WorkersConfig sizes the pool. Count 0 means one worker per CPU; negative
// counts are logged and treated the same way.
type WorkersConfig struct {
	Count        int           `mapstructure:"count"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// StoreConfig selects where finished outcomes are written.
type StoreConfig struct {
	Driver     string `mapstructure:"driver" validate:"required,oneof=file sqlite multi"`
	ResultsDir string `mapstructure:"results_dir" validate:"required"`
	SQLitePath string `mapstructure:"sqlite_path" validate:"required"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("dataset.path", "./nutrition_activity_obesity_usa_subset.csv")
	v.SetDefault("workers.count", 0)
	v.SetDefault("workers.poll_interval", "1s")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.results_dir", "results")
	v.SetDefault("store.sqlite_path", "forge.db")
}

// Load reads configuration. Environment variables (FORGE_ prefix, dots
// replaced by underscores) take precedence over the file named by
// FORGE_CONFIG, which takes precedence over defaults.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(envConfigFile); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("workers.count", envPrefix+"_WORKERS_COUNT", envThreads); err != nil {
		return Config{}, fmt.Errorf("bind %s: %w", envThreads, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)

	if err := validator.New().Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() slog.Level {
	return parseLogLevel(c.Log.Level)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
