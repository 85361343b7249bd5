package common

import (
	"os"
	"path/filepath"

	"github.com/phuslu/log"
)

// InitLogger configures the process logger from config and installs it
// as the package default.
func InitLogger(cfg *Config) *log.Logger {
	var writers log.MultiEntryWriter
	for _, output := range cfg.Logging.Output {
		switch output {
		case "stdout":
			writers = append(writers, &log.ConsoleWriter{
				ColorOutput: cfg.Environment == "development",
				Writer:      os.Stdout,
			})
		case "file":
			if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err == nil {
				writers = append(writers, &log.FileWriter{
					Filename:     cfg.Logging.File,
					MaxSize:      50 << 20,
					MaxBackups:   3,
					EnsureFolder: true,
					LocalTime:    true,
				})
			}
		}
	}
	if len(writers) == 0 {
		writers = append(writers, &log.ConsoleWriter{Writer: os.Stdout})
	}

	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(cfg.Logging.Level),
		TimeFormat: cfg.Logging.TimeFormat,
		Writer:     &writers,
	}
	return &log.DefaultLogger
}

// GetLogger returns the process logger.
func GetLogger() *log.Logger {
	return &log.DefaultLogger
}
