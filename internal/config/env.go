package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joeycumines/runtime-bridge/internal/logging"
)

// envOverrides mirrors the options that may be set from the environment.
// Unset variables leave the seeded value alone.
type envOverrides struct {
	LogLevel    string        `env:"RTBRIDGE_LOG_LEVEL"`
	LogFile     string        `env:"RTBRIDGE_LOG_FILE"`
	LogBuffer   int           `env:"RTBRIDGE_LOG_BUFFER"`
	Script      string        `env:"RTBRIDGE_SCRIPT"`
	FramePeriod time.Duration `env:"RTBRIDGE_FRAME_PERIOD"`
	SyncTimeout time.Duration `env:"RTBRIDGE_SYNC_TIMEOUT"`
	Console     bool          `env:"RTBRIDGE_CONSOLE"`
	Channel     string        `env:"RTBRIDGE_CHANNEL"`
	Filter      string        `env:"RTBRIDGE_FILTER"`
	Symbols     []string      `env:"RTBRIDGE_SYMBOLS" envSeparator:","`
}

// ApplyEnv overlays environment variables onto c. A nil environ reads the
// process environment.
func (c *Config) ApplyEnv(environ map[string]string) error {
	o := envOverrides{
		LogLevel:    c.Log.Level,
		LogFile:     c.Log.File,
		LogBuffer:   c.Log.BufferSize,
		Script:      c.Scene.Script,
		FramePeriod: c.Scene.FramePeriod,
		SyncTimeout: c.Scene.SyncTimeout,
		Console:     c.Scene.Console,
		Channel:     c.Relay.Channel,
		Filter:      c.Relay.Filter,
	}
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.LogBuffer < 0 {
		return fmt.Errorf("parse env: log buffer cannot be negative: %d", o.LogBuffer)
	}
	if o.Channel == "" {
		return fmt.Errorf("parse env: relay channel must not be empty")
	}

	c.Log.Level = o.LogLevel
	c.Log.File = o.LogFile
	c.Log.BufferSize = o.LogBuffer
	c.Scene.Script = o.Script
	c.Scene.FramePeriod = o.FramePeriod
	c.Scene.SyncTimeout = o.SyncTimeout
	c.Scene.Console = o.Console
	c.Relay.Channel = o.Channel
	c.Relay.Filter = o.Filter
	for _, name := range o.Symbols {
		if name == "" || slices.Contains(c.SymbolNames(), name) {
			continue
		}
		if err := parseSymbolLine(&c.Symbols, name, ""); err != nil {
			return fmt.Errorf("parse env: symbol %q: %w", name, err)
		}
	}
	return nil
}
