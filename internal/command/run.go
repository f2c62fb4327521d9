package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/joeycumines/runtime-bridge/internal/bridge"
	"github.com/joeycumines/runtime-bridge/internal/config"
	"github.com/joeycumines/runtime-bridge/internal/relay"
)

// RunCommand runs a scene headless, printing relay events.
type RunCommand struct {
	*BaseCommand
	config   *config.Config
	scene    sceneFlags
	frames   int
	duration time.Duration
}

// NewRunCommand creates a new run command.
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Run a scene headless and print relay events",
			"run [options]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the run command.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	c.scene.setup(fs, c.config)
	fs.IntVar(&c.frames, "frames", 0, "Stop after this many frames (0 runs until interrupted)")
	fs.DurationVar(&c.duration, "duration", 0, "Stop after this long (0 runs until interrupted)")
}

// Execute runs the scene.
func (c *RunCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	return runHeadless(ctx, c.config, &c.scene, c.frames, c.duration, stdout, stderr)
}

func runHeadless(ctx context.Context, cfg *config.Config, f *sceneFlags, frames int, duration time.Duration, stdout, stderr io.Writer) error {
	if frames <= 0 && duration <= 0 && f.period <= 0 {
		return errors.New("manual frame stepping needs -frames or -duration")
	}

	lc, err := resolveLogConfig(f.logFile, f.logLevel, cfg, stderr)
	if err != nil {
		return err
	}
	defer lc.Close()

	src, err := f.load(cfg)
	if err != nil {
		return err
	}

	b, err := bridge.New(ctx, f.bridgeConfig(cfg, src), bridge.WithLogger(lc.logger))
	if err != nil {
		return err
	}
	defer b.Close()

	var events int
	printer := func(ev relay.Event) {
		events++
		if ev.Payload == nil {
			_, _ = fmt.Fprintf(stdout, "%s\n", ev.Channel)
			return
		}
		_, _ = fmt.Fprintf(stdout, "%s\t%v\n", ev.Channel, ev.Payload)
	}
	if err := b.Shell().Bind(b.Shell().Channel(), printer, f.subscribeOptions()...); err != nil {
		return err
	}

	var reached <-chan struct{}
	if f.period > 0 {
		reached = frameLimit(b, frames)
	}
	if err := b.Start(ctx, src.name, src.code); err != nil {
		return err
	}

	for _, t := range f.sends {
		b.Send(t.Object, t.Method, t.Argument)
	}

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	if err := advance(ctx, b, frames, f.period, reached); err != nil {
		return err
	}

	// printer runs on the main loop, queued ahead of this
	var total int
	if err := b.Shell().DispatchSync(func() { total = events }); err != nil {
		return err
	}
	stats := b.Scene().Stats()
	_, _ = fmt.Fprintf(stderr, "frames %d, delivered %d, dropped %d, events %d\n",
		stats.Frames, stats.Delivered, stats.Dropped, total)
	return nil
}

// advance runs frames until frames have completed or ctx is done. With no
// period it steps them itself; otherwise timed frames are stopped at the
// limit, so exactly frames run.
func advance(ctx context.Context, b *bridge.Bridge, frames int, period time.Duration, reached <-chan struct{}) error {
	if period <= 0 {
		for i := 0; frames <= 0 || i < frames; i++ {
			if ctx.Err() != nil {
				return nil
			}
			if err := b.Step(); err != nil {
				return err
			}
		}
		return nil
	}

	select {
	case <-ctx.Done():
		b.Scene().Stop()
	case <-reached:
	}
	return nil
}

// frameLimit stops timed frames once frames have run, closing the returned
// channel. It must be installed before the bridge starts.
func frameLimit(b *bridge.Bridge, frames int) <-chan struct{} {
	reached := make(chan struct{})
	if frames <= 0 {
		return reached
	}
	b.Scene().OnFrame(func(n uint64) {
		if n == uint64(frames) {
			b.Scene().Stop()
			close(reached)
		}
	})
	return reached
}
