package gateway

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dop251/goja"
	"github.com/joeycumines/runtime-bridge/internal/logging"
)

// Handler implements a boundary symbol on the host side.
//
// Handlers run synchronously on whatever goroutine made the call, which for
// calls from a script is the scene's loop goroutine, not the host's UI
// goroutine. A handler that mutates UI state must redispatch that work onto
// the UI goroutine itself.
type Handler func()

// Outbound is the boundary symbol table. Symbols are registered once at
// start-up; after Seal (or Bind) the table is immutable.
type Outbound struct {
	logger *slog.Logger

	mu      sync.RWMutex
	symbols map[string]Handler
	sealed  bool
}

// OutboundOption configures an Outbound.
type OutboundOption func(*Outbound)

// WithOutboundLogger sets the logger.
func WithOutboundLogger(logger *slog.Logger) OutboundOption {
	return func(o *Outbound) {
		o.logger = logger
	}
}

// NewOutbound creates an empty, unsealed table.
func NewOutbound(opts ...OutboundOption) *Outbound {
	o := &Outbound{symbols: make(map[string]Handler)}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.OrDiscard(o.logger).With("component", "outbound")
	return o
}

// Register binds name to handler. Binding a name twice fails immediately
// with a *DuplicateSymbolError.
func (o *Outbound) Register(name string, handler Handler) error {
	if name == "" {
		return errors.New("symbol name must not be empty")
	}
	if handler == nil {
		return errors.New("symbol handler must not be nil")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sealed {
		return ErrSealed
	}
	if _, ok := o.symbols[name]; ok {
		return &DuplicateSymbolError{Name: name}
	}
	o.symbols[name] = handler
	o.logger.Debug("symbol registered", "symbol", name)
	return nil
}

// Invoke runs the handler bound to name and returns once it has finished.
// An unbound name yields a *UnknownSymbolError; when the table has been
// linked that can only happen for names the scene never declared.
// Panics from the handler propagate to the caller.
func (o *Outbound) Invoke(name string) error {
	o.mu.RLock()
	handler, ok := o.symbols[name]
	o.mu.RUnlock()
	if !ok {
		return &UnknownSymbolError{Name: name}
	}
	o.logger.Debug("symbol invoked", "symbol", name)
	handler()
	return nil
}

// Has reports whether name is bound.
func (o *Outbound) Has(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.symbols[name]
	return ok
}

// Symbols returns the bound names, sorted.
func (o *Outbound) Symbols() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.symbols))
	for name := range o.symbols {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Link checks that every declared symbol is bound. The result joins one
// *UnknownSymbolError per missing name; callers treat it as fatal.
func (o *Outbound) Link(declared []string) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var errs []error
	for _, name := range declared {
		if _, ok := o.symbols[name]; !ok {
			errs = append(errs, &UnknownSymbolError{Name: name})
		}
	}
	return errors.Join(errs...)
}

// Seal makes the table immutable.
func (o *Outbound) Seal() {
	o.mu.Lock()
	o.sealed = true
	o.mu.Unlock()
}

// Sealed reports whether the table is immutable.
func (o *Outbound) Sealed() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sealed
}

// Bind seals the table and defines each symbol as a global function in vm.
// It must run on the goroutine that owns vm. Calling a name that was never
// bound is a ReferenceError inside the script.
func (o *Outbound) Bind(vm *goja.Runtime) error {
	o.Seal()
	for _, name := range o.Symbols() {
		if err := vm.Set(name, o.jsSymbol(vm, name)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Outbound) jsSymbol(vm *goja.Runtime, name string) func(goja.FunctionCall) goja.Value {
	return func(goja.FunctionCall) goja.Value {
		if err := o.Invoke(name); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	}
}
