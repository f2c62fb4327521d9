package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Section names.
const (
	SectionScene   = "scene"
	SectionRelay   = "relay"
	SectionSymbols = "symbols"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeDuration is a Go time.Duration value (e.g. "16ms", "5s").
	TypeDuration OptionType = "duration"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a section name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
}

// ConfigSchema declares the expected configuration options.
type ConfigSchema struct {
	options   []*ConfigOption
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Duplicate keys within the same
// section are overwritten (last registration wins).
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if s.bySection[opt.Section] == nil {
		s.bySection[opt.Section] = make(map[string]*ConfigOption)
	}
	s.bySection[opt.Section][opt.Key] = ref
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key in a given section ("" for global).
// Returns nil if the key is not registered.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	return s.bySection[section][key]
}

// SectionOptions returns all registered options for a section, in
// registration order.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns a sorted list of all registered non-empty section names.
func (s *ConfigSchema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		if sec != "" {
			out = append(out, sec)
		}
	}
	sort.Strings(out)
	return out
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// FormatHelp returns a formatted, human-readable reference of all registered
// options in the schema, grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	if globals := s.SectionOptions(""); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	for _, sec := range s.Sections() {
		opts := s.SectionOptions(sec)
		if len(opts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}

	fmt.Fprintf(&b, "\n[%s]\n  <name> [description]               Boundary symbol the host binds (env: RTBRIDGE_SYMBOLS, comma separated)\n", SectionSymbols)
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-35s %s", o.Key, o.Description)
	parts := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// DefaultSchema returns the schema declaring every known option.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "log.level", Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "RTBRIDGE_LOG_LEVEL"},
		{Key: "log.file", Type: TypeString, Description: "Append logs to this file instead of stderr", EnvVar: "RTBRIDGE_LOG_FILE"},
		{Key: "log.max-size-mb", Type: TypeInt, Default: strconv.Itoa(DefaultLogMaxSizeMB), Description: "Max log file size in MB before rotation"},
		{Key: "log.max-files", Type: TypeInt, Default: strconv.Itoa(DefaultLogMaxFiles), Description: "Max number of rotated log files kept"},
		{Key: "log.buffer-size", Type: TypeInt, Default: strconv.Itoa(DefaultLogBuffer), Description: "In-memory log buffer size (entries)", EnvVar: "RTBRIDGE_LOG_BUFFER"},

		{Key: "script", Section: SectionScene, Type: TypeString, Description: "Scene script path; empty runs the built-in demo", EnvVar: "RTBRIDGE_SCRIPT"},
		{Key: "frame-period", Section: SectionScene, Type: TypeDuration, Default: DefaultFramePeriod.String(), Description: "Interval between scene frames", EnvVar: "RTBRIDGE_FRAME_PERIOD"},
		{Key: "sync-timeout", Section: SectionScene, Type: TypeDuration, Default: DefaultSyncTimeout.String(), Description: "Bound on synchronous scene loop calls", EnvVar: "RTBRIDGE_SYNC_TIMEOUT"},
		{Key: "console", Section: SectionScene, Type: TypeBool, Default: "false", Description: "Expose console to scene scripts", EnvVar: "RTBRIDGE_CONSOLE"},

		{Key: "channel", Section: SectionRelay, Type: TypeString, Default: DefaultChannel, Description: "Relay channel for scene notifications", EnvVar: "RTBRIDGE_CHANNEL"},
		{Key: "filter", Section: SectionRelay, Type: TypeString, Description: "Expression selecting which events are printed", EnvVar: "RTBRIDGE_FILTER"},
	})
	return s
}
