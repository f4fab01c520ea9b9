package common

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
)

var (
	logger     arbor.ILogger
	loggerOnce sync.Once
)

// InitLogger configures the application logger from config. Console output
// is always enabled; a rolling file writer is added when a log directory
// is configured.
func InitLogger(cfg *Config) arbor.ILogger {
	loggerOnce.Do(func() {
		l := arbor.NewLogger().
			WithConsoleWriter(arbormodels.WriterConfiguration{
				Type:       arbormodels.LogWriterTypeConsole,
				TimeFormat: "15:04:05",
			})

		if cfg != nil && cfg.Paths.LogDir != "" {
			if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err == nil {
				l = l.WithFileWriter(arbormodels.WriterConfiguration{
					Type:       arbormodels.LogWriterTypeFile,
					FileName:   filepath.Join(cfg.Paths.LogDir, "boardgen.log"),
					TimeFormat: "15:04:05.000",
					MaxSize:    10 * 1024 * 1024,
					MaxBackups: 5,
				})
			}
		}

		level := "info"
		if cfg != nil && cfg.Logging.Level != "" {
			level = cfg.Logging.Level
		}
		logger = l.WithLevelFromString(level)
	})
	return logger
}

// GetLogger returns the configured logger, initialising a console-only
// logger at info level if InitLogger has not run.
func GetLogger() arbor.ILogger {
	if logger == nil {
		return InitLogger(nil)
	}
	return logger
}
