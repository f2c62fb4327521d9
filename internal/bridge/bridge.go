// Package bridge wires the scene runtime and the host shell together: it
// owns both, connects them through the two gateways, and gives the pair a
// single start and a single close.
package bridge

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/runtime-bridge/internal/gateway"
	"github.com/joeycumines/runtime-bridge/internal/host"
	"github.com/joeycumines/runtime-bridge/internal/logging"
	"github.com/joeycumines/runtime-bridge/internal/relay"
	"github.com/joeycumines/runtime-bridge/internal/scene"
)

// DemoScript is the built-in scene, used when no script is configured.
//
//go:embed scripts/demo.js
var DemoScript string

// DemoScriptName is the name DemoScript is loaded under.
const DemoScriptName = "demo.js"

// DemoSymbols are the symbols DemoScript declares.
var DemoSymbols = []string{"showHostMenu", "hideHostMenu", "playerMoved", "playerBlocked"}

var (
	// ErrStarted is returned by Start when called twice.
	ErrStarted = errors.New("bridge already started")

	// ErrClosed is returned by operations on a closed bridge.
	ErrClosed = errors.New("bridge closed")
)

// Config selects how the bridge runs.
type Config struct {
	// FramePeriod is the scene frame interval. Zero or less means frames
	// only advance through Step.
	FramePeriod time.Duration
	// SyncTimeout bounds synchronous calls onto the scene loop.
	SyncTimeout time.Duration
	// Console exposes console.* to scene scripts.
	Console bool
	// Channel is the relay channel symbols notify on.
	Channel string
	// Notify lists symbols bound so that calling them broadcasts on Channel.
	Notify []string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// Bridge is a running pair of runtimes.
type Bridge struct {
	cfg     Config
	logger  *slog.Logger
	shell   *host.Shell
	runtime *scene.Runtime
	scene   *scene.Scene
	inbound *gateway.Inbound

	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates both runtimes and binds cfg.Notify. Further symbols may be
// registered on Outbound until Start.
func New(ctx context.Context, cfg Config, opts ...Option) (*Bridge, error) {
	b := &Bridge{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrDiscard(b.logger)

	shellOpts := []host.Option{host.WithLogger(b.logger)}
	if cfg.Channel != "" {
		shellOpts = append(shellOpts, host.WithChannel(cfg.Channel))
	}
	shell, err := host.New(shellOpts...)
	if err != nil {
		return nil, err
	}
	b.shell = shell

	for _, name := range cfg.Notify {
		if err := shell.Notify(name); err != nil {
			_ = shell.Close()
			return nil, fmt.Errorf("bind symbol %q: %w", name, err)
		}
	}

	rtOpts := []scene.RuntimeOption{
		scene.WithRuntimeLogger(b.logger),
		scene.WithConsole(cfg.Console),
	}
	if cfg.SyncTimeout > 0 {
		rtOpts = append(rtOpts, scene.WithSyncTimeout(cfg.SyncTimeout))
	}
	rt, err := scene.NewRuntime(ctx, rtOpts...)
	if err != nil {
		_ = shell.Close()
		return nil, err
	}
	b.runtime = rt
	b.scene = scene.New(rt, scene.WithLogger(b.logger))
	b.inbound = gateway.NewInbound(b.scene, gateway.WithInboundLogger(b.logger))
	return b, nil
}

// Shell returns the host shell.
func (b *Bridge) Shell() *host.Shell {
	return b.shell
}

// Relay returns the host-owned event relay.
func (b *Bridge) Relay() *relay.Relay {
	return b.shell.Relay()
}

// Outbound returns the boundary symbol table.
func (b *Bridge) Outbound() *gateway.Outbound {
	return b.shell.Outbound()
}

// Scene returns the scene.
func (b *Bridge) Scene() *scene.Scene {
	return b.scene
}

// Runtime returns the scene runtime.
func (b *Bridge) Runtime() *scene.Runtime {
	return b.runtime
}

// Start starts the host components before running the scene script, so
// their observers see notifications made at the script's top level. Every
// symbol the script declared must be bound. A failure tears the host
// components back down and is fatal to the bridge; the caller should Close
// it.
func (b *Bridge) Start(ctx context.Context, name, code string) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.started {
		b.mu.Unlock()
		return ErrStarted
	}
	b.started = true
	b.mu.Unlock()

	outbound := b.shell.Outbound()
	if err := b.runtime.RunOnLoopSync(func(vm *goja.Runtime) error {
		return outbound.Bind(vm)
	}); err != nil {
		return fmt.Errorf("bind symbols: %w", err)
	}

	if err := b.shell.Start(ctx); err != nil {
		return err
	}

	if err := b.runtime.LoadScript(name, code); err != nil {
		return errors.Join(err, b.shell.Stop())
	}

	if err := outbound.Link(b.scene.Declared()); err != nil {
		return errors.Join(fmt.Errorf("link %s: %w", name, err), b.shell.Stop())
	}

	if err := b.scene.Start(b.cfg.FramePeriod); err != nil {
		return errors.Join(fmt.Errorf("start frames: %w", err), b.shell.Stop())
	}

	b.logger.Info("bridge started",
		"script", name,
		"objects", b.scene.Names(),
		"symbols", outbound.Symbols(),
		"period", b.cfg.FramePeriod,
	)
	return nil
}

// Send queues a call to a scene object method for the next frame. It never
// fails and never reports whether the call was delivered.
func (b *Bridge) Send(object, method, argument string) {
	b.inbound.Send(object, method, argument)
}

// Step runs one frame immediately.
func (b *Bridge) Step() error {
	return b.scene.Step()
}

// Close stops frames, the scene runtime and the shell, in that order. Safe
// to call more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := errors.Join(
		b.scene.Close(),
		b.runtime.Close(),
		b.shell.Close(),
	)
	stats := b.scene.Stats()
	b.logger.Debug("bridge closed",
		"frames", stats.Frames,
		"delivered", stats.Delivered,
		"dropped", stats.Dropped,
		"sent", b.inbound.Sent(),
	)
	return err
}
