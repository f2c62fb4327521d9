package host

import (
	"context"

	"github.com/joeycumines/runtime-bridge/internal/relay"
)

// Lifecycle is the start/teardown contract between the shell and the
// components it hosts. Both methods run on the main loop. OnTeardown runs
// only for components whose OnStart succeeded, in reverse start order.
type Lifecycle interface {
	OnStart(ctx context.Context) error
	OnTeardown()
}

// LifecycleFuncs adapts a pair of functions to Lifecycle. Either may be nil.
type LifecycleFuncs struct {
	Start    func(ctx context.Context) error
	Teardown func()
}

// OnStart implements Lifecycle.
func (f LifecycleFuncs) OnStart(ctx context.Context) error {
	if f.Start == nil {
		return nil
	}
	return f.Start(ctx)
}

// OnTeardown implements Lifecycle.
func (f LifecycleFuncs) OnTeardown() {
	if f.Teardown != nil {
		f.Teardown()
	}
}

// observerLifecycle binds a relay observer to the shell's lifecycle, so it
// is subscribed on start and always unsubscribed on teardown.
type observerLifecycle struct {
	shell    *Shell
	channel  string
	observer relay.Observer
	opts     []relay.SubscribeOption
	sub      *relay.Subscription
}

func (l *observerLifecycle) OnStart(context.Context) error {
	sub, err := l.shell.Observe(l.channel, l.observer, l.opts...)
	if err != nil {
		return err
	}
	l.sub = sub
	return nil
}

func (l *observerLifecycle) OnTeardown() {
	l.sub.Unsubscribe()
}
