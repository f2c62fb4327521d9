package relay

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id       string
	channel  string
	observer Observer
	filter   *filter
	relay    *Relay
	active   atomic.Bool
}

func newSubscription(r *Relay, channel string, observer Observer) *Subscription {
	return &Subscription{
		id:       uuid.NewString(),
		channel:  channel,
		observer: observer,
		relay:    r,
	}
}

// ID uniquely identifies the subscription.
func (s *Subscription) ID() string { return s.id }

// Channel is the channel the observer is bound to.
func (s *Subscription) Channel() string { return s.channel }

// Active reports whether the observer still receives events.
func (s *Subscription) Active() bool { return s.active.Load() }

// Unsubscribe is shorthand for Relay.Unsubscribe. Calling it more than once
// is harmless.
func (s *Subscription) Unsubscribe() {
	s.relay.Unsubscribe(s)
}

// Close implements io.Closer.
func (s *Subscription) Close() error {
	s.Unsubscribe()
	return nil
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	filter string
}

// WithFilter restricts delivery to events for which the boolean expression
// holds. The expression sees two variables: channel (string) and payload
// (the published value, nil if absent). For example:
//
//	payload == "Up" || payload == "Down"
//
// Channel selection itself stays exact; the filter only narrows it.
func WithFilter(expression string) SubscribeOption {
	return func(c *subscribeConfig) {
		c.filter = expression
	}
}
