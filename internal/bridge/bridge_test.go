package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/runtime-bridge/internal/gateway"
	"github.com/joeycumines/runtime-bridge/internal/relay"
	"github.com/joeycumines/runtime-bridge/internal/testutil"
)

func newTestBridge(t *testing.T, cfg Config) *Bridge {
	t.Helper()
	b, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

type events struct {
	mu       sync.Mutex
	payloads []any
}

func (e *events) observe(ev relay.Event) {
	e.mu.Lock()
	e.payloads = append(e.payloads, ev.Payload)
	e.mu.Unlock()
}

func (e *events) get() []any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]any(nil), e.payloads...)
}

func TestBridge_OutboundCallRunsBeforeScriptContinues(t *testing.T) {
	b := newTestBridge(t, Config{})

	var flag atomic.Bool
	require.NoError(t, b.Outbound().Register("ping", func() { flag.Store(true) }))

	require.NoError(t, b.Start(context.Background(), "ping.js", `
		const scene = require('bridge:scene');
		scene.declare('ping');
		ping();
		var seen = 'unset';
	`))
	assert.True(t, flag.Load())

	// the handler ran synchronously, so the script resumed after it
	v, err := b.Runtime().GetGlobal("seen")
	require.NoError(t, err)
	assert.Equal(t, "unset", v)
}

func TestBridge_NotifyReachesEveryObserverOnce(t *testing.T) {
	b := newTestBridge(t, Config{Channel: "evt", Notify: []string{"showHostMenu"}})

	var o1, o2 events
	require.NoError(t, b.Shell().Bind("evt", o1.observe))
	require.NoError(t, b.Shell().Bind("evt", o2.observe))

	require.NoError(t, b.Start(context.Background(), "notify.js", `
		require('bridge:scene').declare('showHostMenu');
		showHostMenu();
	`))

	ctx := context.Background()
	require.NoError(t, testutil.Eventually(ctx, func() bool { return len(o1.get()) == 1 && len(o2.get()) == 1 }))
	assert.Equal(t, []any{"showHostMenu"}, o1.get())
	assert.Equal(t, []any{"showHostMenu"}, o2.get())
}

func TestBridge_InboundDeliveredNextFrame(t *testing.T) {
	b := newTestBridge(t, Config{})
	require.NoError(t, b.Start(context.Background(), "target.js", `
		var acts = [];
		require('bridge:scene').add('Target', {
			Act: function (arg) { acts.push(arg); },
		});
	`))

	b.Send("Target", "Act", "Up")

	acts, err := b.Runtime().GetGlobal("acts")
	require.NoError(t, err)
	assert.Empty(t, acts, "delivery waits for the next frame")

	require.NoError(t, b.Step())
	acts, err = b.Runtime().GetGlobal("acts")
	require.NoError(t, err)
	assert.Equal(t, []any{"Up"}, acts)

	require.NoError(t, b.Step())
	acts, err = b.Runtime().GetGlobal("acts")
	require.NoError(t, err)
	assert.Equal(t, []any{"Up"}, acts, "delivered exactly once")
}

func TestBridge_InboundUnknownTargetIsSilent(t *testing.T) {
	b := newTestBridge(t, Config{})
	require.NoError(t, b.Start(context.Background(), "empty.js", `var x = 1;`))

	assert.NotPanics(t, func() {
		b.Send("Missing", "Act", "x")
		b.Send("", "", "")
	})
	require.NoError(t, b.Step())

	stats := b.Scene().Stats()
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, uint64(0), stats.Delivered)
}

func TestBridge_LinkFailureIsFatal(t *testing.T) {
	b := newTestBridge(t, Config{Notify: []string{"showHostMenu"}})

	err := b.Start(context.Background(), "bad.js", `
		require('bridge:scene').declare('showHostMenu', 'openInventory');
	`)
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnknownSymbol)
	assert.Contains(t, err.Error(), "openInventory")
	assert.Equal(t, uint64(0), b.Scene().Frame(), "frames never start")
}

func TestBridge_FailedStartUnbindsObservers(t *testing.T) {
	b := newTestBridge(t, Config{Channel: "evt", Notify: []string{"showHostMenu"}})

	var got events
	require.NoError(t, b.Shell().Bind("evt", got.observe))

	err := b.Start(context.Background(), "bad.js", `
		require('bridge:scene').declare('showHostMenu', 'openInventory');
		showHostMenu();
	`)
	require.ErrorIs(t, err, gateway.ErrUnknownSymbol)

	// the top-level notify was observed before the link check failed
	require.NoError(t, testutil.Eventually(context.Background(), func() bool { return len(got.get()) == 1 }))
	require.NoError(t, b.Shell().DispatchSync(func() {}))
	assert.Equal(t, 0, b.Relay().Observers("evt"))
	assert.False(t, b.Relay().Closed())
}

func TestBridge_UndeclaredCallIsReferenceError(t *testing.T) {
	b := newTestBridge(t, Config{})
	err := b.Start(context.Background(), "undeclared.js", `openInventory();`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ReferenceError")
}

func TestBridge_RegisterAfterStartRejected(t *testing.T) {
	b := newTestBridge(t, Config{})
	require.NoError(t, b.Start(context.Background(), "empty.js", ``))
	err := b.Outbound().Register("late", func() {})
	assert.ErrorIs(t, err, gateway.ErrSealed)
	assert.ErrorIs(t, b.Start(context.Background(), "again.js", ``), ErrStarted)
}

func TestBridge_DemoScene(t *testing.T) {
	b := newTestBridge(t, Config{Notify: DemoSymbols})

	var got events
	require.NoError(t, b.Shell().Bind(b.Shell().Channel(), got.observe))
	require.NoError(t, b.Start(context.Background(), DemoScriptName, DemoScript))
	assert.ElementsMatch(t, []string{"Menu", "Player"}, b.Scene().Names())

	b.Send("Menu", "Toggle", "")
	b.Send("Player", "Move", "Up")
	b.Send("Player", "Move", "Up")
	b.Send("Player", "Move", "Up")
	b.Send("Player", "Jump", "")
	b.Send("Menu", "Toggle", "")
	require.NoError(t, b.Step())

	want := []any{"showHostMenu", "playerMoved", "playerMoved", "playerBlocked", "hideHostMenu"}
	require.NoError(t, testutil.Eventually(context.Background(), func() bool { return len(got.get()) == len(want) }))
	assert.Equal(t, want, got.get())
}

func TestBridge_FramesRunOnTimer(t *testing.T) {
	b := newTestBridge(t, Config{FramePeriod: 2 * time.Millisecond})
	require.NoError(t, b.Start(context.Background(), "timer.js", `
		var acts = 0;
		require('bridge:scene').add('Target', {
			Act: function () { acts++; },
		});
	`))

	b.Send("Target", "Act", "")
	_, err := testutil.WaitForState(context.Background(), func() uint64 { return b.Scene().Stats().Delivered },
		func(n uint64) bool { return n == 1 }, testutil.DefaultTimeout, testutil.DefaultInterval)
	require.NoError(t, err)
	assert.Positive(t, b.Scene().Frame())
}

func TestBridge_Close(t *testing.T) {
	b, err := New(context.Background(), Config{Channel: "evt"})
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background(), "empty.js", ``))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.False(t, b.Runtime().IsRunning())
	assert.True(t, b.Relay().Closed())
	assert.NotPanics(t, func() { b.Send("Target", "Act", "x") })
	assert.ErrorIs(t, b.Start(context.Background(), "x.js", ``), ErrClosed)
}

func TestNew_DuplicateNotifySymbol(t *testing.T) {
	_, err := New(context.Background(), Config{Notify: []string{"a", "a"}})
	assert.ErrorIs(t, err, gateway.ErrDuplicateSymbol)
}
