package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joeycumines/runtime-bridge/internal/relay"
)

// Forward returns a relay observer that hands each event to p on its own
// goroutine.
func Forward(p *tea.Program) relay.Observer {
	return func(ev relay.Event) {
		p.Send(EventMsg(ev))
	}
}

// Run shows m until the user quits or ctx is done, forwarding every event
// on channel from r that passes opts. It returns the final model.
func Run(ctx context.Context, r *relay.Relay, channel string, m Model, in io.Reader, out io.Writer, opts ...relay.SubscribeOption) (Model, error) {
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)

	sub, err := r.Subscribe(channel, Forward(p), opts...)
	if err != nil {
		return m, err
	}
	defer sub.Unsubscribe()

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		m = fm
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return m, err
	}
	return m, nil
}
