// Package relay implements the host-side event relay: a named-channel
// broadcaster that decouples whoever emits a bridge event from the
// observers that react to it.
//
// A Relay is constructed explicitly and owned by the host shell, which
// injects it into any component that needs to publish or subscribe. There
// is no process-wide instance.
//
// Delivery is synchronous per observer and runs on the publisher's
// goroutine: Publish invokes each observer of the channel in turn and
// returns once all have run. Observers that touch UI state must redispatch
// onto the UI goroutine themselves; the relay makes no attempt to detect
// affinity violations.
//
// Ordering: for a single publishing goroutine, events on one channel reach
// each observer in publish order. No ordering exists across channels, nor
// across concurrent publishers.
package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joeycumines/runtime-bridge/internal/logging"
)

var (
	// ErrClosed is returned by operations on a relay after Close.
	ErrClosed = errors.New("relay closed")

	// ErrInvalidSubscription is returned when subscribing with an empty
	// channel name or a nil observer.
	ErrInvalidSubscription = errors.New("invalid subscription")
)

// Event is the unit of relay traffic. It is created at emission time,
// handed to every observer, and then discarded.
type Event struct {
	// Channel is the exact channel name the event was published on.
	Channel string
	// Payload is unstructured and optional; nil means absent.
	Payload any
}

// Observer receives events for a channel.
type Observer func(Event)

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger used for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// Relay broadcasts events to the observers of a named channel.
type Relay struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[string][]*Subscription
	closed bool
}

// New creates an open relay.
func New(opts ...Option) *Relay {
	r := &Relay{subs: make(map[string][]*Subscription)}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDiscard(r.logger).With("component", "relay")
	return r
}

// Publish delivers an event to every current observer of channel. With no
// observers it does nothing.
func (r *Relay) Publish(channel string, payload any) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]*Subscription(nil), r.subs[channel]...)
	r.mu.RUnlock()

	ev := Event{Channel: channel, Payload: payload}
	delivered := 0
	for _, sub := range subs {
		if r.deliver(sub, ev) {
			delivered++
		}
	}
	r.logger.Debug("published", "channel", channel, "observers", len(subs), "delivered", delivered)
	return nil
}

func (r *Relay) deliver(sub *Subscription, ev Event) (ok bool) {
	if !sub.Active() {
		return false
	}
	if sub.filter != nil {
		match, err := sub.filter.match(ev)
		if err != nil {
			r.logger.Warn("filter failed", "channel", ev.Channel, "subscription", sub.id, "error", err)
			return false
		}
		if !match {
			return false
		}
	}
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("observer panicked", "channel", ev.Channel, "subscription", sub.id, "panic", fmt.Sprint(v))
			ok = false
		}
	}()
	sub.observer(ev)
	return true
}

// Subscribe registers observer for channel and returns the handle used to
// unsubscribe it. Several observers may share a channel; the order in which
// they are invoked is unspecified.
func (r *Relay) Subscribe(channel string, observer Observer, opts ...SubscribeOption) (*Subscription, error) {
	if channel == "" || observer == nil {
		return nil, ErrInvalidSubscription
	}
	var cfg subscribeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	sub := newSubscription(r, channel, observer)
	if cfg.filter != "" {
		f, err := compileFilter(cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("subscribe %q: %w", channel, err)
		}
		sub.filter = f
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	r.subs[channel] = append(r.subs[channel], sub)
	sub.active.Store(true)
	r.logger.Debug("subscribed", "channel", channel, "subscription", sub.id)
	return sub, nil
}

// Unsubscribe removes sub. It is a no-op for nil, already removed, or
// foreign handles.
func (r *Relay) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.relay != r {
		return
	}
	if !sub.active.CompareAndSwap(true, false) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(sub)
	r.logger.Debug("unsubscribed", "channel", sub.channel, "subscription", sub.id)
}

func (r *Relay) remove(sub *Subscription) {
	list := r.subs[sub.channel]
	for i, s := range list {
		if s == sub {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.subs, sub.channel)
	} else {
		r.subs[sub.channel] = list
	}
}

// Observers returns the number of active observers on channel.
func (r *Relay) Observers(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[channel])
}

// Channels returns the number of channels with at least one observer.
func (r *Relay) Channels() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Close tears the relay down, deactivating every subscription so no
// observer outlives its owner. Later calls are no-ops.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	n := 0
	for _, list := range r.subs {
		for _, sub := range list {
			sub.active.Store(false)
			n++
		}
	}
	r.subs = make(map[string][]*Subscription)
	r.logger.Debug("closed", "dropped", n)
	return nil
}

// Closed reports whether Close has been called.
func (r *Relay) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}
