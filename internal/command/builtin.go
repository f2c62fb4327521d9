package command

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joeycumines/runtime-bridge/internal/config"
)

// HelpCommand displays help information for commands.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

// Execute displays help information.
func (c *HelpCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "rtbridge - drive a scripted scene from a native host shell")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: rtbridge <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'rtbridge help <command>' for more information about a specific command (includes flags).")
		return nil
	}

	cmdName := args[0]
	cmd, err := c.registry.Get(cmdName)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", cmdName)
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: %s\n", cmd.Usage())

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	buf := &bytes.Buffer{}
	fs.SetOutput(buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand displays version information.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand creates a new version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

// Execute displays version information.
func (c *VersionCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdout, "rtbridge version %s\n", c.version)
	return nil
}

// ConfigCommand shows the effective configuration or the option reference.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
}

// NewConfigCommand creates a new config command. configPath is only
// displayed.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Show effective configuration",
			"config [show|schema]",
		),
		config:     cfg,
		configPath: configPath,
	}
}

// Execute shows configuration.
func (c *ConfigCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "show":
		c.show(stdout)
		return nil
	case "schema":
		_, _ = fmt.Fprint(stdout, config.DefaultSchema().FormatHelp())
		return nil
	default:
		_, _ = fmt.Fprintf(stderr, "unknown config subcommand: %s\n", sub)
		return fmt.Errorf("unknown config subcommand: %s", sub)
	}
}

func (c *ConfigCommand) show(stdout io.Writer) {
	cfg := c.config
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	if c.configPath != "" {
		_, _ = fmt.Fprintf(w, "file\t%s\n", c.configPath)
	}
	_, _ = fmt.Fprintf(w, "log.level\t%s\n", cfg.Log.Level)
	_, _ = fmt.Fprintf(w, "log.file\t%s\n", cfg.Log.File)
	_, _ = fmt.Fprintf(w, "log.buffer-size\t%d\n", cfg.Log.BufferSize)
	_, _ = fmt.Fprintf(w, "log.max-size-mb\t%d\n", cfg.Log.MaxSizeMB)
	_, _ = fmt.Fprintf(w, "log.max-files\t%d\n", cfg.Log.MaxFiles)
	_, _ = fmt.Fprintf(w, "[scene] script\t%s\n", cfg.Scene.Script)
	_, _ = fmt.Fprintf(w, "[scene] frame-period\t%s\n", cfg.Scene.FramePeriod)
	_, _ = fmt.Fprintf(w, "[scene] sync-timeout\t%s\n", cfg.Scene.SyncTimeout)
	_, _ = fmt.Fprintf(w, "[scene] console\t%t\n", cfg.Scene.Console)
	_, _ = fmt.Fprintf(w, "[relay] channel\t%s\n", cfg.Relay.Channel)
	_, _ = fmt.Fprintf(w, "[relay] filter\t%s\n", cfg.Relay.Filter)
	for _, s := range cfg.Symbols {
		_, _ = fmt.Fprintf(w, "[symbols] %s\t%s\n", s.Name, s.Description)
	}
	_ = w.Flush()
	for _, warning := range cfg.Warnings {
		_, _ = fmt.Fprintf(stdout, "warning: %s\n", warning)
	}
}
