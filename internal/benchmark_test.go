// Package internal_test contains benchmarks for the paths that cross the
// runtime boundary.
package internal_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/joeycumines/runtime-bridge/internal/bridge"
	"github.com/joeycumines/runtime-bridge/internal/config"
	"github.com/joeycumines/runtime-bridge/internal/gateway"
	"github.com/joeycumines/runtime-bridge/internal/relay"
)

func BenchmarkRelay(b *testing.B) {
	for _, observers := range []int{1, 8, 64} {
		b.Run(fmt.Sprintf("Publish/%d", observers), func(b *testing.B) {
			r := relay.New()
			defer r.Close()
			var n atomic.Int64
			for range observers {
				if _, err := r.Subscribe("evt", func(relay.Event) { n.Add(1) }); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := r.Publish("evt", "x"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}

	b.Run("PublishFiltered", func(b *testing.B) {
		r := relay.New()
		defer r.Close()
		if _, err := r.Subscribe("evt", func(relay.Event) {}, relay.WithFilter(`payload == "x"`)); err != nil {
			b.Fatal(err)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := r.Publish("evt", "y"); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkOutboundInvoke(b *testing.B) {
	o := gateway.NewOutbound()
	var n atomic.Int64
	if err := o.Register("ping", func() { n.Add(1) }); err != nil {
		b.Fatal(err)
	}
	o.Seal()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := o.Invoke("ping"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBridge(b *testing.B) {
	newBridge := func(b *testing.B) *bridge.Bridge {
		br, err := bridge.New(context.Background(), bridge.Config{Notify: bridge.DemoSymbols})
		if err != nil {
			b.Fatal(err)
		}
		b.Cleanup(func() { _ = br.Close() })
		if err := br.Start(context.Background(), bridge.DemoScriptName, bridge.DemoScript); err != nil {
			b.Fatal(err)
		}
		return br
	}

	b.Run("SendAndStep", func(b *testing.B) {
		br := newBridge(b)
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			br.Send("Player", "Move", "Up")
			if err := br.Step(); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("SendBatchOf64", func(b *testing.B) {
		br := newBridge(b)
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			for range 64 {
				br.Send("Menu", "Toggle", "")
			}
			if err := br.Step(); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("StepEmpty", func(b *testing.B) {
		br := newBridge(b)
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := br.Step(); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkConfigLoading(b *testing.B) {
	content := `log.level debug
[scene]
frame-period 16ms
[relay]
channel ui
[symbols]
showHostMenu Opens the menu
hideHostMenu
`
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := config.LoadFromReader(strings.NewReader(content)); err != nil {
			b.Fatal(err)
		}
	}
}
