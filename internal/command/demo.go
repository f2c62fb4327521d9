package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/joeycumines/runtime-bridge/internal/bridge"
	"github.com/joeycumines/runtime-bridge/internal/config"
	"github.com/joeycumines/runtime-bridge/internal/tui"
)

// DemoCommand runs a scene with the interactive UI.
type DemoCommand struct {
	*BaseCommand
	config *config.Config
	scene  sceneFlags
	frames int
	stdin  io.Reader
}

// NewDemoCommand creates a new demo command.
func NewDemoCommand(cfg *config.Config) *DemoCommand {
	return &DemoCommand{
		BaseCommand: NewBaseCommand(
			"demo",
			"Run a scene with the interactive UI (headless when not a terminal)",
			"demo [options]",
		),
		config: cfg,
		stdin:  os.Stdin,
	}
}

// SetupFlags configures the flags for the demo command.
func (c *DemoCommand) SetupFlags(fs *flag.FlagSet) {
	c.scene.setup(fs, c.config)
	fs.IntVar(&c.frames, "frames", 0, "Frames to run when falling back to headless (0 runs until interrupted)")
}

// Execute runs the demo.
func (c *DemoCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}

	out, ok := stdout.(*os.File)
	if !ok || !term.IsTerminal(int(out.Fd())) {
		_, _ = fmt.Fprintln(stderr, "stdout is not a terminal, running headless")
		return runHeadless(ctx, c.config, &c.scene, c.frames, 0, stdout, stderr)
	}

	// the UI owns the terminal, so logs stay in memory unless a file is set
	lc, err := resolveLogConfig(c.scene.logFile, c.scene.logLevel, c.config, nil)
	if err != nil {
		return err
	}
	defer lc.Close()

	src, err := c.scene.load(c.config)
	if err != nil {
		return err
	}

	b, err := bridge.New(ctx, c.scene.bridgeConfig(c.config, src), bridge.WithLogger(lc.logger))
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Start(ctx, src.name, src.code); err != nil {
		return err
	}
	for _, t := range c.scene.sends {
		b.Send(t.Object, t.Method, t.Argument)
	}

	opts := []tui.Option{
		tui.WithLogBuffer(lc.buffer),
		tui.WithTitle("rtbridge · " + src.name),
	}
	if !src.demo {
		opts = append(opts, tui.WithActions(nil))
	}
	_, err = tui.Run(ctx, b.Relay(), b.Shell().Channel(), tui.New(b, opts...), c.stdin, out, c.scene.subscribeOptions()...)
	return err
}
