package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration, loaded from defaults, then
// TOML files in order, then environment overrides.
type Config struct {
	Environment string        `toml:"environment" validate:"oneof=development production"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Overlay     OverlayConfig `toml:"overlay"`
	Logging     LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=1,lte=65535"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

type BadgerConfig struct {
	Path string `toml:"path" validate:"required"`
}

type FilesystemConfig struct {
	Documents string `toml:"documents" validate:"required"` // uploaded document blobs
	Fonts     string `toml:"fonts" validate:"required"`     // uploaded font blobs
}

// OverlayConfig tunes the auto-fit search and edit matching.
type OverlayConfig struct {
	AutoFitStep    float64 `toml:"auto_fit_step" validate:"gt=0"`
	MinFontSize    float64 `toml:"min_font_size" validate:"gt=0"`
	MatchTolerance float64 `toml:"match_tolerance" validate:"gt=0"`
	Background     string  `toml:"background" validate:"hexcolor"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	TimeFormat string   `toml:"time_format"`
	Output     []string `toml:"output" validate:"dive,oneof=stdout file"`
	File       string   `toml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{Host: "localhost", Port: 8085},
		Storage: StorageConfig{
			Badger:     BadgerConfig{Path: "./data/db"},
			Filesystem: FilesystemConfig{Documents: "./data/uploads", Fonts: "./data/fonts"},
		},
		Overlay: OverlayConfig{
			AutoFitStep:    0.5,
			MinFontSize:    6,
			MatchTolerance: 1,
			Background:     "#FFFFFF",
		},
		Logging: LoggingConfig{
			Level:      "info",
			TimeFormat: "15:04:05",
			Output:     []string{"stdout"},
			File:       "./logs/pdfeditd.log",
		},
	}
}

// LoadFromFiles layers the given TOML files over the defaults, later
// files overriding earlier ones, then applies environment overrides
// and validates the result.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := Default()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PDFEDIT_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PDFEDIT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PDFEDIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
