// Package goroutineid identifies goroutines so loop owners can detect
// re-entrant calls made from their own goroutine.
package goroutineid

import (
	"bytes"
	"runtime"
	"sync"
	"sync/atomic"
)

var stackBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 64)
		return &b
	},
}

var goroutinePrefix = []byte("goroutine ")

// Get returns the current goroutine ID, or 0 if it cannot be determined.
func Get() int64 {
	bp := stackBufPool.Get().(*[]byte)
	defer stackBufPool.Put(bp)
	n := runtime.Stack(*bp, false)
	return parse((*bp)[:n])
}

// parse reads the ID from the "goroutine N [status]:" header of a stack
// trace without allocating.
func parse(stack []byte) int64 {
	rest, ok := bytes.CutPrefix(stack, goroutinePrefix)
	if !ok {
		return 0
	}
	var id int64
	for _, b := range rest {
		if b < '0' || b > '9' {
			break
		}
		id = id*10 + int64(b-'0')
	}
	return id
}

// Owner remembers which goroutine owns a loop. The zero value owns nothing.
type Owner struct {
	id atomic.Int64
}

// Claim marks the calling goroutine as the owner.
func (o *Owner) Claim() {
	o.id.Store(Get())
}

// Release clears the owner.
func (o *Owner) Release() {
	o.id.Store(0)
}

// Held reports whether the calling goroutine is the owner.
func (o *Owner) Held() bool {
	id := o.id.Load()
	return id != 0 && id == Get()
}
