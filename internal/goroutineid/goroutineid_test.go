package goroutineid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		name  string
		stack string
		want  int64
	}{
		{"running", "goroutine 123 [running]:\n", 123},
		{"single digit", "goroutine 7 [select]:\n", 7},
		{"no prefix", "something else\n", 0},
		{"prefix only", "goroutine ", 0},
		{"empty", "", 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parse([]byte(tc.stack)))
		})
	}
}

func TestGet(t *testing.T) {
	id := Get()
	require.Greater(t, id, int64(0))
	require.Equal(t, id, Get())

	other := make(chan int64)
	go func() { other <- Get() }()
	require.NotEqual(t, id, <-other)
}

func TestOwner(t *testing.T) {
	var o Owner
	require.False(t, o.Held())

	o.Claim()
	require.True(t, o.Held())

	held := make(chan bool)
	go func() { held <- o.Held() }()
	require.False(t, <-held)

	o.Release()
	require.False(t, o.Held())
}
