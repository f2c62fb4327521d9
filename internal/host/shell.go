package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	eventloop "github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/runtime-bridge/internal/gateway"
	"github.com/joeycumines/runtime-bridge/internal/goroutineid"
	"github.com/joeycumines/runtime-bridge/internal/logging"
	"github.com/joeycumines/runtime-bridge/internal/relay"
)

// DefaultChannel is the well-known relay channel scene notifications are
// broadcast on.
const DefaultChannel = "bridge.notify"

// DefaultDispatchTimeout bounds DispatchSync.
const DefaultDispatchTimeout = 5 * time.Second

var (
	// ErrClosed is returned once the shell has been closed.
	ErrClosed = errors.New("shell closed")

	// ErrStarted is returned when registering a lifecycle after Start.
	ErrStarted = errors.New("shell already started")
)

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the shell logger; it is shared with the relay and the
// symbol table.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) {
		s.logger = logger
	}
}

// WithChannel overrides DefaultChannel.
func WithChannel(channel string) Option {
	return func(s *Shell) {
		s.channel = channel
	}
}

// WithDispatchTimeout bounds DispatchSync. Zero disables the bound.
func WithDispatchTimeout(timeout time.Duration) Option {
	return func(s *Shell) {
		s.timeout = timeout
	}
}

// Shell is the host runtime.
type Shell struct {
	logger   *slog.Logger
	channel  string
	timeout  time.Duration
	relay    *relay.Relay
	outbound *gateway.Outbound

	loop    *eventloop.Loop
	owner   goroutineid.Owner
	stopRun context.CancelFunc
	runDone chan struct{}

	mu         sync.Mutex
	lifecycles []Lifecycle
	running    []Lifecycle
	started    bool
	closed     bool
}

// New creates a shell and starts its main loop.
func New(opts ...Option) (*Shell, error) {
	s := &Shell{
		channel: DefaultChannel,
		timeout: DefaultDispatchTimeout,
		runDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	s.relay = relay.New(relay.WithLogger(s.logger))
	s.outbound = gateway.NewOutbound(gateway.WithOutboundLogger(s.logger))
	s.logger = s.logger.With("component", "shell")

	loop, err := eventloop.New()
	if err != nil {
		return nil, fmt.Errorf("create main loop: %w", err)
	}
	s.loop = loop

	runCtx, cancel := context.WithCancel(context.Background())
	s.stopRun = cancel
	go func() {
		defer close(s.runDone)
		if err := loop.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("main loop exited", "error", err)
		}
	}()

	if err := s.DispatchSync(s.owner.Claim); err != nil {
		cancel()
		_ = loop.Close()
		return nil, fmt.Errorf("start main loop: %w", err)
	}
	return s, nil
}

// Relay returns the shell-owned event relay.
func (s *Shell) Relay() *relay.Relay {
	return s.relay
}

// Outbound returns the boundary symbol table.
func (s *Shell) Outbound() *gateway.Outbound {
	return s.outbound
}

// Channel returns the relay channel used for scene notifications.
func (s *Shell) Channel() string {
	return s.channel
}

// OnMain reports whether the caller is on the main loop goroutine.
func (s *Shell) OnMain() bool {
	return s.owner.Held()
}

// Dispatch queues fn to run on the main loop and returns immediately. It
// reports false if fn could not be queued. Panics in fn are logged.
func (s *Shell) Dispatch(fn func()) bool {
	if fn == nil {
		return false
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false
	}
	if err := s.loop.Submit(func() { s.safely(fn) }); err != nil {
		s.logger.Debug("dispatch rejected", "error", err)
		return false
	}
	return true
}

// DispatchSync runs fn on the main loop and waits for it. Called from the
// main loop it runs fn directly.
func (s *Shell) DispatchSync(fn func()) error {
	if s.owner.Held() {
		s.safely(fn)
		return nil
	}
	done := make(chan struct{})
	if !s.Dispatch(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	var timeoutCh <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	select {
	case <-done:
		return nil
	case <-s.runDone:
		return ErrClosed
	case <-timeoutCh:
		return fmt.Errorf("dispatch timed out after %v", s.timeout)
	}
}

func (s *Shell) safely(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			s.logger.Error("main loop task panicked", "panic", fmt.Sprint(v))
		}
	}()
	fn()
}

// Observe subscribes observer to channel with each event redispatched onto
// the main loop, so the observer may touch UI state. An event still queued
// when the subscription ends is discarded.
func (s *Shell) Observe(channel string, observer relay.Observer, opts ...relay.SubscribeOption) (*relay.Subscription, error) {
	if observer == nil {
		return nil, relay.ErrInvalidSubscription
	}
	var handle atomic.Pointer[relay.Subscription]
	sub, err := s.relay.Subscribe(channel, func(ev relay.Event) {
		if s.owner.Held() {
			observer(ev)
			return
		}
		s.Dispatch(func() {
			if h := handle.Load(); h != nil && !h.Active() {
				return
			}
			observer(ev)
		})
	}, opts...)
	if err != nil {
		return nil, err
	}
	handle.Store(sub)
	return sub, nil
}

// Notify registers symbol so that calling it from the scene broadcasts an
// event on the shell channel, carrying the symbol name as payload.
func (s *Shell) Notify(symbol string) error {
	return s.outbound.Register(symbol, func() {
		if err := s.relay.Publish(s.channel, symbol); err != nil {
			s.logger.Debug("notify dropped", "symbol", symbol, "error", err)
		}
	})
}

// Register adds a component lifecycle. It must be called before Start.
func (s *Shell) Register(l Lifecycle) error {
	if l == nil {
		return errors.New("lifecycle must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return ErrStarted
	}
	s.lifecycles = append(s.lifecycles, l)
	return nil
}

// Bind registers observer for channel for the life of the shell.
func (s *Shell) Bind(channel string, observer relay.Observer, opts ...relay.SubscribeOption) error {
	return s.Register(&observerLifecycle{shell: s, channel: channel, observer: observer, opts: opts})
}

// Start runs every registered OnStart, in order, on the main loop. If one
// fails, the ones that succeeded are torn down and the error returned.
func (s *Shell) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	pending := slices.Clone(s.lifecycles)
	s.mu.Unlock()

	var startErr error
	err := s.DispatchSync(func() {
		for i, l := range pending {
			if err := l.OnStart(ctx); err != nil {
				startErr = fmt.Errorf("start component %d: %w", i, err)
				break
			}
			s.mu.Lock()
			s.running = append(s.running, l)
			s.mu.Unlock()
		}
		if startErr != nil {
			s.teardown()
		}
	})
	if err != nil {
		return err
	}
	if startErr == nil {
		s.logger.Info("started", "components", len(pending), "symbols", len(s.outbound.Symbols()))
	}
	return startErr
}

// Stop tears down started components, in reverse order, without closing
// the shell.
func (s *Shell) Stop() error {
	return s.DispatchSync(s.teardown)
}

// teardown runs on the main loop.
func (s *Shell) teardown() {
	s.mu.Lock()
	running := s.running
	s.running = nil
	s.mu.Unlock()
	for i := len(running) - 1; i >= 0; i-- {
		s.safely(running[i].OnTeardown)
	}
}

// Close tears down started components in reverse order, closes the relay
// and stops the main loop. Safe to call more than once.
func (s *Shell) Close() error {
	var err error
	if derr := s.DispatchSync(s.teardown); derr != nil {
		err = derr
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err = errors.Join(err, s.relay.Close())
	s.stopRun()
	<-s.runDone
	// cancelling Run usually terminates the loop already
	if cerr := s.loop.Close(); cerr != nil && !errors.Is(cerr, eventloop.ErrLoopTerminated) {
		err = errors.Join(err, cerr)
	}
	s.owner.Release()
	s.logger.Debug("closed")
	return err
}
