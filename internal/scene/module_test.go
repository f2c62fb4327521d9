package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModule_AddAndDeliver(t *testing.T) {
	s := newTestScene(t)

	require.NoError(t, s.Runtime().LoadScript("scene.js", `
		const scene = require('bridge:scene');
		globalThis.received = [];
		scene.add('Target', {
			Act: function (arg) { received.push(this.prefix + arg); },
			prefix: '>',
		});
	`))

	obj, ok := s.Lookup("Target")
	require.True(t, ok)
	assert.Equal(t, []string{"Act"}, obj.Methods())

	s.Post(Target{Object: "Target", Method: "Act", Argument: "Up"})
	require.NoError(t, s.Step())

	got, err := s.Runtime().GetGlobal("received")
	require.NoError(t, err)
	assert.Equal(t, []any{">Up"}, got)
}

func TestModule_ThrowingMethodIsSilent(t *testing.T) {
	s := newTestScene(t)

	require.NoError(t, s.Runtime().LoadScript("scene.js", `
		const scene = require('bridge:scene');
		scene.add('Bad', { Act: function () { throw new Error('inside'); } });
	`))
	s.Post(Target{Object: "Bad", Method: "Act"})
	require.NoError(t, s.Step())
}

func TestModule_DuplicateAddThrows(t *testing.T) {
	s := newTestScene(t)

	err := s.Runtime().LoadScript("dup.js", `
		const scene = require('bridge:scene');
		scene.add('A', {});
		scene.add('A', {});
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestModule_RemoveHasNamesFrame(t *testing.T) {
	s := newTestScene(t)
	require.NoError(t, s.Step())

	require.NoError(t, s.Runtime().LoadScript("misc.js", `
		const scene = require('bridge:scene');
		scene.add('A', {});
		scene.add('B', {});
		globalThis.hadA = scene.has('A');
		globalThis.removed = scene.remove('A');
		globalThis.hasA = scene.has('A');
		globalThis.count = scene.names().length;
		globalThis.frame = scene.frame();
	`))

	for name, want := range map[string]any{
		"hadA":    true,
		"removed": true,
		"hasA":    false,
	} {
		got, err := s.Runtime().GetGlobal(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
	count, err := s.Runtime().GetGlobal("count")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	frame, err := s.Runtime().GetGlobal("frame")
	require.NoError(t, err)
	assert.EqualValues(t, 1, frame)
}

func TestModule_DeclareAndOnFrame(t *testing.T) {
	s := newTestScene(t)

	require.NoError(t, s.Runtime().LoadScript("hooks.js", `
		const scene = require('bridge:scene');
		scene.declare('showHostMenu', 'quit', 'showHostMenu');
		globalThis.ticks = 0;
		scene.onFrame(function (n) { ticks = n; });
	`))
	assert.Equal(t, []string{"showHostMenu", "quit"}, s.Declared())

	require.NoError(t, s.Step())
	require.NoError(t, s.Step())
	ticks, err := s.Runtime().GetGlobal("ticks")
	require.NoError(t, err)
	assert.EqualValues(t, 2, ticks)
}

func TestModule_PostFromScript(t *testing.T) {
	s := newTestScene(t)

	var act calls
	require.NoError(t, s.Add(NewObject("Target").Handle("Act", act.method)))
	require.NoError(t, s.Runtime().LoadScript("post.js", `
		require('bridge:scene').post('Target', 'Act', 'fromScript');
	`))
	assert.Empty(t, act.get())
	require.NoError(t, s.Step())
	assert.Equal(t, []string{"fromScript"}, act.get())
}
