// Package command holds the rtbridge subcommands. Each one owns a FlagSet,
// is looked up by name in a Registry, and runs with the process streams.
package command

import (
	"context"
	"flag"
	"io"
)

// Command is one rtbridge subcommand.
type Command interface {
	// Name is the word typed after rtbridge.
	Name() string

	// Description is the one-line summary shown by help.
	Description() string

	// Usage is the synopsis shown by help <command>.
	Usage() string

	// SetupFlags declares the command's flags on fs before parsing.
	SetupFlags(fs *flag.FlagSet)

	// Execute runs with the arguments left over after flag parsing. ctx
	// ends on interrupt; long-running commands return when it does.
	Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

// BaseCommand carries the help text every command has. Commands embed it
// and add SetupFlags and Execute.
type BaseCommand struct {
	name        string
	description string
	usage       string
}

// NewBaseCommand returns the help text for a command.
func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{name: name, description: description, usage: usage}
}

func (c *BaseCommand) Name() string        { return c.name }
func (c *BaseCommand) Description() string { return c.description }
func (c *BaseCommand) Usage() string       { return c.usage }

// SetupFlags declares nothing; commands without flags keep it.
func (c *BaseCommand) SetupFlags(*flag.FlagSet) {}
