package command

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/runtime-bridge/internal/config"
	"github.com/joeycumines/runtime-bridge/internal/logging"
)

// logConfig holds the resolved logger for commands that run a bridge.
type logConfig struct {
	logger *slog.Logger
	buffer *logging.Buffer
	file   io.WriteCloser // nil if no file logging
}

// resolveLogConfig resolves logging from flags and config. Flag values take
// precedence. Records go to the log file when one is configured, otherwise
// to console (which may be nil, keeping them in memory only). The caller
// must Close the result.
func resolveLogConfig(flagPath, flagLevel string, cfg *config.Config, console io.Writer) (logConfig, error) {
	var lc logConfig

	level := cfg.LogLevel()
	if flagLevel != "" {
		l, err := logging.ParseLevel(flagLevel)
		if err != nil {
			return lc, fmt.Errorf("invalid log level: %s", flagLevel)
		}
		level = l
	}

	path := flagPath
	if path == "" {
		path = cfg.Log.File
	}

	w := console
	if path != "" {
		f, err := logging.OpenFile(path, cfg.Log.MaxSizeMB, cfg.Log.MaxFiles)
		if err != nil {
			return lc, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		lc.file = f
		w = f
	}

	lc.logger, lc.buffer = logging.New(w, level, cfg.Log.BufferSize)
	return lc, nil
}

// Close closes the log file, if any.
func (lc logConfig) Close() error {
	if lc.file == nil {
		return nil
	}
	return lc.file.Close()
}
