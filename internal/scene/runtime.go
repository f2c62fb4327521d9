package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/runtime-bridge/internal/goroutineid"
	"github.com/joeycumines/runtime-bridge/internal/logging"
)

// DefaultSyncTimeout is the maximum duration to wait for RunOnLoopSync.
const DefaultSyncTimeout = 5 * time.Second

// ErrNotRunning is returned when work is submitted to a stopped runtime.
var ErrNotRunning = errors.New("event loop not running")

// Runtime is the embedded script runtime: one goja VM serialized by a
// goja_nodejs event loop. The loop is the runtime's only scheduler; every
// VM access must happen on it, via RunOnLoop or RunOnLoopSync.
type Runtime struct {
	loop     *eventloop.EventLoop
	registry *require.Registry
	logger   *slog.Logger
	timeout  time.Duration
	console  bool

	// vm is captured on the loop at start and only touched from it.
	vm    *goja.Runtime
	owner goroutineid.Owner

	mu      sync.RWMutex
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRegistry shares an existing require registry.
func WithRegistry(registry *require.Registry) RuntimeOption {
	return func(rt *Runtime) {
		rt.registry = registry
	}
}

// WithSyncTimeout bounds RunOnLoopSync. Zero disables the bound.
func WithSyncTimeout(timeout time.Duration) RuntimeOption {
	return func(rt *Runtime) {
		rt.timeout = timeout
	}
}

// WithRuntimeLogger sets the runtime logger.
func WithRuntimeLogger(logger *slog.Logger) RuntimeOption {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithConsole toggles the console global for scripts.
func WithConsole(enabled bool) RuntimeOption {
	return func(rt *Runtime) {
		rt.console = enabled
	}
}

// NewRuntime creates and starts a Runtime. Cancelling ctx closes it.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	rt := &Runtime{
		timeout: DefaultSyncTimeout,
		console: true,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.registry == nil {
		rt.registry = require.NewRegistry()
	}
	rt.logger = logging.OrDiscard(rt.logger).With("component", "scene-runtime")

	rt.loop = eventloop.NewEventLoop(
		eventloop.WithRegistry(rt.registry),
		eventloop.EnableConsole(rt.console),
	)

	// The lifecycle context is independent of ctx so that Done() closing
	// always implies IsRunning() is false; ctx only triggers Close.
	rt.ctx, rt.cancel = context.WithCancel(context.Background())

	rt.loop.Start()
	rt.mu.Lock()
	rt.started = true
	rt.mu.Unlock()

	ready := make(chan struct{})
	if !rt.loop.RunOnLoop(func(vm *goja.Runtime) {
		rt.vm = vm
		rt.owner.Claim()
		close(ready)
	}) {
		rt.cancel()
		return nil, errors.New("failed to initialize: event loop not running")
	}
	<-ready

	if ctx.Done() != nil {
		context.AfterFunc(ctx, func() {
			_ = rt.Close()
		})
	}

	rt.logger.Debug("started")
	return rt, nil
}

// Registry returns the require registry native modules are registered on.
func (rt *Runtime) Registry() *require.Registry {
	return rt.registry
}

// EventLoop exposes the underlying loop, for timers.
func (rt *Runtime) EventLoop() *eventloop.EventLoop {
	return rt.loop
}

// Close stops the loop, waiting for the running job to finish. It must not
// be called from the loop goroutine. Safe to call more than once.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil
	}
	rt.cancel()
	rt.stopped = true
	rt.mu.Unlock()

	rt.loop.Stop()
	rt.logger.Debug("stopped")
	return nil
}

// Done is closed once the runtime is stopped.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.ctx.Done()
}

// IsRunning reports whether the runtime accepts work.
func (rt *Runtime) IsRunning() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.started && !rt.stopped
}

// OnLoop reports whether the caller is running on the loop goroutine.
func (rt *Runtime) OnLoop() bool {
	return rt.owner.Held()
}

// RunOnLoop schedules fn on the loop. It reports false if the runtime is
// not running. The VM must not escape fn.
func (rt *Runtime) RunOnLoop(fn func(*goja.Runtime)) bool {
	if !rt.IsRunning() {
		return false
	}
	return rt.loop.RunOnLoop(fn)
}

// RunOnLoopSync runs fn on the loop and waits for it, bounded by the sync
// timeout. Calling it from the loop goroutine deadlocks; use
// TryRunOnLoopSync where that can happen.
func (rt *Runtime) RunOnLoopSync(fn func(*goja.Runtime) error) error {
	rt.mu.RLock()
	if !rt.started || rt.stopped {
		rt.mu.RUnlock()
		return ErrNotRunning
	}
	timeout := rt.timeout
	rt.mu.RUnlock()

	errCh := make(chan error, 1)
	if !rt.loop.RunOnLoop(func(vm *goja.Runtime) {
		errCh <- fn(vm)
	}) {
		return ErrNotRunning
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case err := <-errCh:
		return err
	case <-rt.Done():
		return errors.New("runtime stopped before completion")
	case <-timeoutCh:
		return fmt.Errorf("operation timed out after %v", timeout)
	}
}

// TryRunOnLoopSync runs fn directly when already on the loop goroutine,
// otherwise behaves like RunOnLoopSync.
func (rt *Runtime) TryRunOnLoopSync(fn func(*goja.Runtime) error) error {
	if !rt.IsRunning() {
		return ErrNotRunning
	}
	if rt.owner.Held() {
		return fn(rt.vm)
	}
	return rt.RunOnLoopSync(fn)
}

// LoadScript compiles and runs code on the loop.
func (rt *Runtime) LoadScript(name, code string) error {
	return rt.TryRunOnLoopSync(func(vm *goja.Runtime) error {
		prg, err := goja.Compile(name, code, true)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", name, err)
		}
		if _, err := vm.RunProgram(prg); err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		return nil
	})
}

// SetGlobal sets a global variable in the VM.
func (rt *Runtime) SetGlobal(name string, value any) error {
	return rt.TryRunOnLoopSync(func(vm *goja.Runtime) error {
		return vm.Set(name, value)
	})
}

// GetGlobal exports a global variable, or nil if it is unset.
func (rt *Runtime) GetGlobal(name string) (any, error) {
	var result any
	err := rt.TryRunOnLoopSync(func(vm *goja.Runtime) error {
		val := vm.Get(name)
		if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
			return nil
		}
		result = val.Export()
		return nil
	})
	return result, err
}
