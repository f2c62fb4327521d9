package gateway

import (
	"context"
	"sync"
	"testing"

	"github.com/joeycumines/runtime-bridge/internal/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailbox struct {
	closed  bool
	targets []Target
}

func (m *fakeMailbox) Post(t scene.Target) bool {
	if m.closed {
		return false
	}
	m.targets = append(m.targets, t)
	return true
}

func TestInbound_SendQueues(t *testing.T) {
	mb := &fakeMailbox{}
	in := NewInbound(mb)

	in.Send("Target", "Act", "Up")
	assert.Equal(t, []Target{{Object: "Target", Method: "Act", Argument: "Up"}}, mb.targets)
	assert.Equal(t, uint64(1), in.Sent())
}

func TestInbound_SendToClosedIsSilent(t *testing.T) {
	mb := &fakeMailbox{closed: true}
	in := NewInbound(mb)
	require.NotPanics(t, func() { in.Send("Target", "Act", "Up") })
	assert.Equal(t, uint64(0), in.Sent())

	var nilGateway *Inbound
	require.NotPanics(t, func() { nilGateway.Send("a", "b", "c") })
	require.NotPanics(t, func() { NewInbound(nil).Send("a", "b", "c") })
}

func newScene(t *testing.T) *scene.Scene {
	t.Helper()
	rt, err := scene.NewRuntime(context.Background(), scene.WithConsole(false))
	require.NoError(t, err)
	s := scene.New(rt)
	t.Cleanup(func() {
		_ = s.Close()
		_ = rt.Close()
	})
	return s
}

func TestInbound_MissingObjectHasNoEffect(t *testing.T) {
	s := newScene(t)

	var mu sync.Mutex
	invoked := 0
	require.NoError(t, s.Add(scene.NewObject("Present").Handle("Method", func(string) {
		mu.Lock()
		invoked++
		mu.Unlock()
	})))
	in := NewInbound(s)

	require.NotPanics(t, func() { in.Send("Missing", "Method", "Up") })
	require.NoError(t, s.Step())
	require.NoError(t, s.Step())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, invoked)
	assert.Equal(t, []string{"Present"}, s.Names())
	assert.Equal(t, uint64(0), s.Stats().Delivered)
}

func TestInbound_ExistingTargetInvokedOnceWithinOneFrame(t *testing.T) {
	s := newScene(t)

	var got []string
	var at []uint64
	require.NoError(t, s.Add(scene.NewObject("Target").Handle("Act", func(arg string) {
		got = append(got, arg)
		at = append(at, s.Frame())
	})))
	in := NewInbound(s)

	before := s.Frame()
	in.Send("Target", "Act", "Up")
	require.NoError(t, s.Step())
	require.NoError(t, s.Step())

	assert.Equal(t, []string{"Up"}, got)
	require.Len(t, at, 1)
	// The method runs during the frame after the send, before the frame
	// counter advances past it.
	assert.Equal(t, before, at[0])
}
