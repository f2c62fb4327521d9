package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/joeycumines/runtime-bridge/internal/bridge"
	"github.com/joeycumines/runtime-bridge/internal/config"
)

// SymbolsCommand lists the boundary symbols and checks a scene links.
type SymbolsCommand struct {
	*BaseCommand
	config *config.Config
	scene  sceneFlags
	check  bool
}

// NewSymbolsCommand creates a new symbols command.
func NewSymbolsCommand(cfg *config.Config) *SymbolsCommand {
	return &SymbolsCommand{
		BaseCommand: NewBaseCommand(
			"symbols",
			"List boundary symbols and check a scene links against them",
			"symbols [-check] [-script path]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the symbols command.
func (c *SymbolsCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.scene.script, "script", c.config.Scene.Script, "Scene script path (empty uses the built-in demo)")
	fs.BoolVar(&c.check, "check", false, "Load the scene and verify every symbol it declares is bound")
}

// Execute lists symbols.
func (c *SymbolsCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}

	src, err := c.scene.load(c.config)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for _, name := range src.notify {
		desc := "notifies " + c.config.Relay.Channel
		if i := slices.IndexFunc(c.config.Symbols, func(s config.Symbol) bool { return s.Name == name }); i >= 0 && c.config.Symbols[i].Description != "" {
			desc = c.config.Symbols[i].Description
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", name, desc)
	}
	_ = w.Flush()

	if !c.check {
		return nil
	}

	// a throwaway bridge with manual frames, so nothing runs after linking
	lc, err := resolveLogConfig("", "", c.config, stderr)
	if err != nil {
		return err
	}
	defer lc.Close()
	cfg := c.scene.bridgeConfig(c.config, src)
	cfg.FramePeriod = 0
	b, err := bridge.New(ctx, cfg, bridge.WithLogger(lc.logger))
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Start(ctx, src.name, src.code); err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: link failed\n", src.name)
		return err
	}
	_, _ = fmt.Fprintf(stdout, "%s: ok, declares %v\n", src.name, b.Scene().Declared())
	return nil
}
