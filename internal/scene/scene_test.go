package scene

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScene(t *testing.T) *Scene {
	t.Helper()
	s := New(newTestRuntime(t))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type calls struct {
	mu   sync.Mutex
	args []string
}

func (c *calls) method(arg string) {
	c.mu.Lock()
	c.args = append(c.args, arg)
	c.mu.Unlock()
}

func (c *calls) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.args...)
}

func TestScene_DeliversOnNextFrame(t *testing.T) {
	s := newTestScene(t)

	var act calls
	require.NoError(t, s.Add(NewObject("Target").Handle("Act", act.method)))

	require.True(t, s.Post(Target{Object: "Target", Method: "Act", Argument: "Up"}))
	assert.Empty(t, act.get(), "delivery must wait for a frame")
	assert.Equal(t, 1, s.Pending())

	require.NoError(t, s.Step())
	assert.Equal(t, []string{"Up"}, act.get())
	assert.Equal(t, 0, s.Pending())

	require.NoError(t, s.Step())
	assert.Equal(t, []string{"Up"}, act.get(), "delivered exactly once")
	assert.Equal(t, uint64(2), s.Frame())
}

func TestScene_UnresolvableTargetsAreDropped(t *testing.T) {
	s := newTestScene(t)

	var act calls
	require.NoError(t, s.Add(NewObject("Target").Handle("Act", act.method)))

	s.Post(Target{Object: "Missing", Method: "Method", Argument: "Up"})
	s.Post(Target{Object: "Target", Method: "Nope", Argument: "Up"})
	require.NotPanics(t, func() { require.NoError(t, s.Step()) })

	assert.Empty(t, act.get())
	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.Posted)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, uint64(0), stats.Delivered)
}

func TestScene_ObjectRemovedBeforeDelivery(t *testing.T) {
	s := newTestScene(t)

	var act calls
	require.NoError(t, s.Add(NewObject("Target").Handle("Act", act.method)))
	s.Post(Target{Object: "Target", Method: "Act", Argument: "Up"})
	require.True(t, s.Remove("Target"))
	require.False(t, s.Remove("Target"))

	require.NoError(t, s.Step())
	assert.Empty(t, act.get())
}

func TestScene_AddDuplicate(t *testing.T) {
	s := newTestScene(t)
	require.NoError(t, s.Add(NewObject("A")))
	assert.ErrorIs(t, s.Add(NewObject("A")), ErrObjectExists)
	assert.Error(t, s.Add(NewObject("")))
	assert.Equal(t, []string{"A"}, s.Names())
}

func TestScene_MethodPanicIsContained(t *testing.T) {
	s := newTestScene(t)

	var after calls
	require.NoError(t, s.Add(NewObject("Bad").Handle("Act", func(string) { panic("boom") })))
	require.NoError(t, s.Add(NewObject("Good").Handle("Act", after.method)))
	s.Post(Target{Object: "Bad", Method: "Act"})
	s.Post(Target{Object: "Good", Method: "Act", Argument: "still"})

	require.NoError(t, s.Step())
	assert.Equal(t, []string{"still"}, after.get())
}

func TestScene_FrameHooks(t *testing.T) {
	s := newTestScene(t)

	var frames []uint64
	s.OnFrame(func(n uint64) { frames = append(frames, n) })
	s.OnFrame(func(uint64) { panic("hook") })
	s.OnFrame(nil)

	require.NoError(t, s.Step())
	require.NoError(t, s.Step())
	assert.Equal(t, []uint64{1, 2}, frames)
}

func TestScene_PostDuringFrameWaitsForNext(t *testing.T) {
	s := newTestScene(t)

	var second calls
	require.NoError(t, s.Add(NewObject("First").Handle("Act", func(arg string) {
		s.Post(Target{Object: "Second", Method: "Act", Argument: arg})
	})))
	require.NoError(t, s.Add(NewObject("Second").Handle("Act", second.method)))

	s.Post(Target{Object: "First", Method: "Act", Argument: "relay"})
	require.NoError(t, s.Step())
	assert.Empty(t, second.get())
	require.NoError(t, s.Step())
	assert.Equal(t, []string{"relay"}, second.get())
}

func TestScene_StartRunsFrames(t *testing.T) {
	s := newTestScene(t)

	var act calls
	require.NoError(t, s.Add(NewObject("Target").Handle("Act", act.method)))
	require.NoError(t, s.Start(5*time.Millisecond))
	assert.Error(t, s.Start(5*time.Millisecond))

	s.Post(Target{Object: "Target", Method: "Act", Argument: "Up"})
	require.Eventually(t, func() bool { return len(act.get()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return s.Frame() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Up"}, act.get())
}

func TestScene_StopEndsTimedFrames(t *testing.T) {
	s := newTestScene(t)

	stopped := make(chan uint64, 1)
	s.OnFrame(func(n uint64) {
		if n == 2 {
			s.Stop()
			stopped <- n
		}
	})
	require.NoError(t, s.Start(time.Millisecond))

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("frames did not reach the limit")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, uint64(2), s.Frame())

	s.Stop()
	require.NoError(t, s.Step())
	assert.Equal(t, uint64(3), s.Frame())
	require.NoError(t, s.Start(time.Millisecond))
}

func TestScene_StartManualMode(t *testing.T) {
	s := newTestScene(t)
	require.NoError(t, s.Start(0))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, uint64(0), s.Frame())
}

func TestScene_Close(t *testing.T) {
	s := newTestScene(t)

	var act calls
	require.NoError(t, s.Add(NewObject("Target").Handle("Act", act.method)))
	s.Post(Target{Object: "Target", Method: "Act"})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.Post(Target{Object: "Target", Method: "Act"}))
	assert.ErrorIs(t, s.Step(), ErrClosed)
	assert.ErrorIs(t, s.Add(NewObject("Other")), ErrClosed)
	assert.ErrorIs(t, s.Start(time.Millisecond), ErrClosed)
	assert.Empty(t, act.get())
	assert.Equal(t, uint64(1), s.Stats().Dropped)
}

func TestObject_Methods(t *testing.T) {
	obj := NewObject("Player").
		Handle("Move", func(string) {}).
		Handle("Jump", func(string) {})
	assert.Equal(t, "Player", obj.Name())
	assert.Equal(t, []string{"Jump", "Move"}, obj.Methods())

	obj.Handle("Jump", nil)
	_, ok := obj.Method("Jump")
	assert.False(t, ok)
}
