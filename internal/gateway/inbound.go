package gateway

import (
	"log/slog"
	"sync/atomic"

	"github.com/joeycumines/runtime-bridge/internal/logging"
	"github.com/joeycumines/runtime-bridge/internal/scene"
)

// Target addresses a method on a named scene object.
type Target = scene.Target

// Mailbox accepts targets for later delivery. *scene.Scene implements it.
type Mailbox interface {
	Post(t scene.Target) bool
}

// Inbound is the host's path into the scene.
type Inbound struct {
	mailbox Mailbox
	logger  *slog.Logger
	sent    atomic.Uint64
}

// InboundOption configures an Inbound.
type InboundOption func(*Inbound)

// WithInboundLogger sets the logger.
func WithInboundLogger(logger *slog.Logger) InboundOption {
	return func(i *Inbound) {
		i.logger = logger
	}
}

// NewInbound creates a gateway delivering into mailbox.
func NewInbound(mailbox Mailbox, opts ...InboundOption) *Inbound {
	i := &Inbound{mailbox: mailbox}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = logging.OrDiscard(i.logger).With("component", "inbound")
	return i
}

// Send asks the scene to call methodName on objectName with argument. It
// never blocks on the scene, never fails, and gives no acknowledgement: the
// method runs on a later frame if, at that time, both the object and the
// method exist, and otherwise nothing happens. Callers needing more than one
// string must encode it themselves.
func (i *Inbound) Send(objectName, methodName, argument string) {
	if i == nil || i.mailbox == nil {
		return
	}
	if !i.mailbox.Post(Target{Object: objectName, Method: methodName, Argument: argument}) {
		i.logger.Debug("send dropped: scene closed", "object", objectName, "method", methodName)
		return
	}
	i.sent.Add(1)
}

// Sent counts accepted sends. Acceptance does not imply delivery.
func (i *Inbound) Sent() uint64 {
	return i.sent.Load()
}
