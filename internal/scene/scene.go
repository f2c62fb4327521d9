package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/joeycumines/runtime-bridge/internal/logging"
)

// ModuleName is the require() name of the scene module.
const ModuleName = "bridge:scene"

var (
	// ErrObjectExists is returned when adding an object whose name is taken.
	ErrObjectExists = errors.New("object already exists")

	// ErrClosed is returned by operations on a closed scene.
	ErrClosed = errors.New("scene closed")
)

// Target addresses one method of one scene object, with its argument.
type Target struct {
	Object   string
	Method   string
	Argument string
}

// FrameHook runs at the end of every frame, on the loop goroutine.
type FrameHook func(frame uint64)

// Stats counts delivery outcomes. They are diagnostics only; senders never
// see them.
type Stats struct {
	Frames    uint64
	Posted    uint64
	Delivered uint64
	Dropped   uint64
}

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the scene logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scene) {
		s.logger = logger
	}
}

// Scene holds the objects addressable by name and delivers posted targets
// once per frame.
type Scene struct {
	rt     *Runtime
	logger *slog.Logger

	mu       sync.Mutex
	objects  map[string]*Object
	mailbox  []Target
	hooks    []FrameHook
	declared []string
	interval *eventloop.Interval
	closed   bool

	// jsHooks is only touched on the loop goroutine.
	jsHooks []goja.Callable

	frame     atomic.Uint64
	posted    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a scene bound to rt and registers the scene module with the
// runtime's require registry.
func New(rt *Runtime, opts ...Option) *Scene {
	s := &Scene{
		rt:      rt,
		objects: make(map[string]*Object),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger).With("component", "scene")
	rt.Registry().RegisterNativeModule(ModuleName, s.require)
	return s
}

// Runtime returns the runtime the scene runs on.
func (s *Scene) Runtime() *Runtime {
	return s.rt
}

// Add registers obj under its name.
func (s *Scene) Add(obj *Object) error {
	if obj == nil || obj.Name() == "" {
		return errors.New("object must have a name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.objects[obj.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrObjectExists, obj.Name())
	}
	s.objects[obj.Name()] = obj
	s.logger.Debug("object added", "object", obj.Name())
	return nil
}

// Remove unregisters the named object, reporting whether it existed.
// Targets already posted to it are dropped when their frame comes.
func (s *Scene) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[name]; !ok {
		return false
	}
	delete(s.objects, name)
	s.logger.Debug("object removed", "object", name)
	return true
}

// Lookup returns the named object.
func (s *Scene) Lookup(name string) (*Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[name]
	return obj, ok
}

// Names returns the sorted object names.
func (s *Scene) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Declare records boundary symbols the scene expects the host to provide.
func (s *Scene) Declare(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if name != "" && !slices.Contains(s.declared, name) {
			s.declared = append(s.declared, name)
		}
	}
}

// Declared returns the declared boundary symbols in declaration order.
func (s *Scene) Declared() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.declared)
}

// OnFrame adds a hook run after each frame's deliveries.
func (s *Scene) OnFrame(hook FrameHook) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, hook)
	s.mu.Unlock()
}

// Post queues t for delivery on the next frame. It reports false, and
// queues nothing, once the scene is closed.
func (s *Scene) Post(t Target) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.mailbox = append(s.mailbox, t)
	s.posted.Add(1)
	return true
}

// Pending returns the number of targets waiting for the next frame.
func (s *Scene) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mailbox)
}

// Frame returns the number of completed frames.
func (s *Scene) Frame() uint64 {
	return s.frame.Load()
}

// Stats returns delivery counters.
func (s *Scene) Stats() Stats {
	return Stats{
		Frames:    s.frame.Load(),
		Posted:    s.posted.Load(),
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// Start runs frames every period on the loop. A period of zero or less
// leaves the scene in manual mode, advanced only by Step.
func (s *Scene) Start(period time.Duration) error {
	if period <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.interval != nil {
		return errors.New("scene already started")
	}
	if !s.rt.IsRunning() {
		return ErrNotRunning
	}
	s.interval = s.rt.EventLoop().SetInterval(s.tick, period)
	s.logger.Debug("frames started", "period", period)
	return nil
}

// Stop ends timed frames; no frame starts after it returns, though one
// already running completes. The scene stays usable through Step.
func (s *Scene) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval == nil {
		return
	}
	s.rt.EventLoop().ClearInterval(s.interval)
	s.interval = nil
	s.logger.Debug("frames stopped", "frame", s.frame.Load())
}

// tick is the interval callback. Ticks already queued when Stop runs are
// skipped.
func (s *Scene) tick(vm *goja.Runtime) {
	s.mu.Lock()
	running := s.interval != nil
	s.mu.Unlock()
	if running {
		s.runFrame(vm)
	}
}

// Step runs exactly one frame and waits for it to finish.
func (s *Scene) Step() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.rt.TryRunOnLoopSync(func(vm *goja.Runtime) error {
		s.runFrame(vm)
		return nil
	})
}

// Close stops frames and discards queued targets. The runtime itself is
// left running; its owner closes it.
func (s *Scene) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.interval != nil {
		s.rt.EventLoop().ClearInterval(s.interval)
		s.interval = nil
	}
	if n := len(s.mailbox); n > 0 {
		s.dropped.Add(uint64(n))
		s.mailbox = nil
	}
	return nil
}

// runFrame is one tick of the frame cycle. It must run on the loop.
func (s *Scene) runFrame(vm *goja.Runtime) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	batch := s.mailbox
	s.mailbox = nil
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()

	for _, t := range batch {
		s.deliver(t)
	}

	n := s.frame.Add(1)
	for _, hook := range hooks {
		s.runHook(n, func() { hook(n) })
	}
	for _, fn := range s.jsHooks {
		if _, err := fn(goja.Undefined(), vm.ToValue(n)); err != nil {
			s.logger.Warn("frame hook failed", "frame", n, "error", err)
		}
	}
}

func (s *Scene) runHook(frame uint64, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			s.logger.Error("frame hook panicked", "frame", frame, "panic", fmt.Sprint(v))
		}
	}()
	fn()
}

func (s *Scene) deliver(t Target) {
	obj, ok := s.Lookup(t.Object)
	if !ok {
		s.dropped.Add(1)
		s.logger.Debug("dropped: no such object", "object", t.Object, "method", t.Method)
		return
	}
	method, ok := obj.Method(t.Method)
	if !ok {
		s.dropped.Add(1)
		s.logger.Debug("dropped: no such method", "object", t.Object, "method", t.Method)
		return
	}
	defer func() {
		if v := recover(); v != nil {
			s.logger.Error("method panicked", "object", t.Object, "method", t.Method, "panic", fmt.Sprint(v))
		}
	}()
	s.delivered.Add(1)
	method(t.Argument)
}
