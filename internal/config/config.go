package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joeycumines/runtime-bridge/internal/logging"
)

const (
	// DefaultFramePeriod is roughly 60 frames per second.
	DefaultFramePeriod = 16 * time.Millisecond

	// DefaultSyncTimeout bounds synchronous calls onto the scene loop.
	DefaultSyncTimeout = 5 * time.Second

	// DefaultChannel is the relay channel scene notifications use.
	DefaultChannel = "bridge.notify"

	// DefaultLogBuffer is the number of log entries kept in memory.
	DefaultLogBuffer = 1000

	// DefaultLogMaxSizeMB is the log file size that triggers rotation.
	DefaultLogMaxSizeMB = 10

	// DefaultLogMaxFiles is the number of rotated log files kept.
	DefaultLogMaxFiles = 5
)

// Config represents the application configuration.
type Config struct {
	Log   LogConfig
	Scene SceneConfig
	Relay RelayConfig
	// Symbols are the boundary symbols the host binds at start, from the
	// [symbols] section, in file order.
	Symbols []Symbol
	// Warnings contains any warnings generated during config loading
	Warnings []string
}

// LogConfig holds the global log.* options.
type LogConfig struct {
	Level      string
	File       string
	BufferSize int
	MaxSizeMB  int
	MaxFiles   int
}

// SceneConfig holds the [scene] section.
type SceneConfig struct {
	// Script is a path to the scene script. Empty selects the built-in demo.
	Script      string
	FramePeriod time.Duration
	SyncTimeout time.Duration
	Console     bool
}

// RelayConfig holds the [relay] section.
type RelayConfig struct {
	Channel string
	// Filter is an optional expression narrowing which events the CLI
	// prints, evaluated against channel and payload.
	Filter string
}

// Symbol is one [symbols] entry: a name the scene may call, with an
// optional description.
type Symbol struct {
	Name        string
	Description string
}

// NewConfig creates a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			BufferSize: DefaultLogBuffer,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxFiles:   DefaultLogMaxFiles,
		},
		Scene: SceneConfig{
			FramePeriod: DefaultFramePeriod,
			SyncTimeout: DefaultSyncTimeout,
		},
		Relay: RelayConfig{
			Channel: DefaultChannel,
		},
		Warnings: make([]string, 0),
	}
}

// Load loads configuration from the default config file path, then applies
// environment overrides.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	c, err := LoadFromPath(configPath)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(nil); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromPath loads configuration from the specified file path. A missing
// file yields the defaults.
//
// The file uses dnsmasq-style format: optionName remainingLineIsTheValue.
// Symlinks are rejected.
func LoadFromPath(path string) (*Config, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader loads configuration from an io.Reader. Unknown options and
// sections are recorded as warnings; malformed values are errors.
func LoadFromReader(r io.Reader) (*Config, error) {
	config := NewConfig()
	schema := DefaultSchema()
	scanner := bufio.NewScanner(r)

	var section string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(strings.Trim(line, "[]"))
			if section != SectionSymbols && !slices.Contains(schema.Sections(), section) {
				config.addWarning("line %d: unknown section [%s]", lineNo, section)
			}
			continue
		}

		name, value, _ := strings.Cut(line, " ")
		value = strings.TrimSpace(value)

		if section == SectionSymbols {
			if err := parseSymbolLine(&config.Symbols, name, value); err != nil {
				return nil, fmt.Errorf("line %d: invalid symbol %q: %w", lineNo, name, err)
			}
			continue
		}

		opt := schema.Lookup(section, name)
		if opt == nil {
			if section == "" {
				config.addWarning("line %d: unknown global option: %q", lineNo, name)
			} else {
				config.addWarning("line %d: unknown option in [%s]: %q", lineNo, section, name)
			}
			continue
		}
		if err := config.set(opt, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return config, nil
}

// set applies one option, validating it against its declared type.
func (c *Config) set(opt *ConfigOption, value string) error {
	if err := validateType(opt.Type, value); err != nil {
		return fmt.Errorf("option %q: %w", opt.Key, err)
	}
	switch opt.Section + "/" + opt.Key {
	case "/log.level":
		if _, err := logging.ParseLevel(value); err != nil {
			return fmt.Errorf("option %q: %w", opt.Key, err)
		}
		c.Log.Level = value
	case "/log.file":
		c.Log.File = value
	case "/log.buffer-size":
		n, _ := strconv.Atoi(value)
		if n < 0 {
			return fmt.Errorf("option %q cannot be negative: %d", opt.Key, n)
		}
		c.Log.BufferSize = n
	case "/log.max-size-mb":
		n, _ := strconv.Atoi(value)
		if n < 1 {
			return fmt.Errorf("option %q must be at least 1: %d", opt.Key, n)
		}
		c.Log.MaxSizeMB = n
	case "/log.max-files":
		n, _ := strconv.Atoi(value)
		if n < 0 {
			return fmt.Errorf("option %q cannot be negative: %d", opt.Key, n)
		}
		c.Log.MaxFiles = n
	case SectionScene + "/script":
		c.Scene.Script = value
	case SectionScene + "/frame-period":
		c.Scene.FramePeriod, _ = time.ParseDuration(value)
	case SectionScene + "/sync-timeout":
		c.Scene.SyncTimeout, _ = time.ParseDuration(value)
	case SectionScene + "/console":
		c.Scene.Console, _ = parseBool(value)
	case SectionRelay + "/channel":
		if value == "" {
			return fmt.Errorf("option %q must not be empty", opt.Key)
		}
		c.Relay.Channel = value
	case SectionRelay + "/filter":
		c.Relay.Filter = value
	default:
		return fmt.Errorf("option %q is declared but not handled", opt.Key)
	}
	return nil
}

// parseSymbolLine parses a [symbols] line: symbolName optional description.
func parseSymbolLine(symbols *[]Symbol, name, description string) error {
	if !isIdentifier(name) {
		return fmt.Errorf("not a valid identifier")
	}
	if slices.ContainsFunc(*symbols, func(s Symbol) bool { return s.Name == name }) {
		return fmt.Errorf("declared twice")
	}
	*symbols = append(*symbols, Symbol{Name: name, Description: description})
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// SymbolNames returns the configured symbol names in order.
func (c *Config) SymbolNames() []string {
	names := make([]string, len(c.Symbols))
	for i, s := range c.Symbols {
		names[i] = s.Name
	}
	return names
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() slog.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// addWarning adds a warning to the config's warnings list.
func (c *Config) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("[Config] " + msg)
}

// HasWarnings returns true if there are any warnings.
func (c *Config) HasWarnings() bool {
	return len(c.Warnings) > 0
}

// parseBool parses a boolean value from string.
// Accepts: true, false, 1, 0, yes, no, on, off (case-insensitive)
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}
