package command

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joeycumines/runtime-bridge/internal/bridge"
	"github.com/joeycumines/runtime-bridge/internal/config"
	"github.com/joeycumines/runtime-bridge/internal/gateway"
	"github.com/joeycumines/runtime-bridge/internal/relay"
)

// sceneFlags are the flags shared by commands that run a bridge.
type sceneFlags struct {
	script   string
	period   time.Duration
	logLevel string
	logFile  string
	filter   string
	sends    []gateway.Target
}

func (f *sceneFlags) setup(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&f.script, "script", cfg.Scene.Script, "Scene script path (empty runs the built-in demo)")
	fs.DurationVar(&f.period, "period", cfg.Scene.FramePeriod, "Frame period; 0 steps frames manually")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	fs.StringVar(&f.logFile, "log-file", "", "Write logs to this file")
	fs.StringVar(&f.filter, "filter", cfg.Relay.Filter, "Only show events matching this expression")
	fs.Func("send", "Send Object.Method[=argument] after start (repeatable)", func(s string) error {
		t, err := parseTarget(s)
		if err != nil {
			return err
		}
		f.sends = append(f.sends, t)
		return nil
	})
}

// parseTarget parses Object.Method[=argument].
func parseTarget(s string) (gateway.Target, error) {
	addr, arg, _ := strings.Cut(s, "=")
	object, method, ok := strings.Cut(addr, ".")
	if !ok || object == "" || method == "" {
		return gateway.Target{}, fmt.Errorf("invalid target %q: want Object.Method[=argument]", s)
	}
	return gateway.Target{Object: object, Method: method, Argument: arg}, nil
}

// sceneSource is a script ready to load.
type sceneSource struct {
	name   string
	code   string
	notify []string
	demo   bool
}

// load reads the configured script, or selects the built-in demo. Every
// configured symbol is bound as a notifier; the demo adds its own.
func (f *sceneFlags) load(cfg *config.Config) (sceneSource, error) {
	notify := cfg.SymbolNames()
	if f.script == "" {
		for _, name := range bridge.DemoSymbols {
			if !slices.Contains(notify, name) {
				notify = append(notify, name)
			}
		}
		return sceneSource{name: bridge.DemoScriptName, code: bridge.DemoScript, notify: notify, demo: true}, nil
	}
	code, err := os.ReadFile(f.script)
	if err != nil {
		return sceneSource{}, fmt.Errorf("read scene script: %w", err)
	}
	return sceneSource{name: filepath.Base(f.script), code: string(code), notify: notify}, nil
}

func (f *sceneFlags) bridgeConfig(cfg *config.Config, src sceneSource) bridge.Config {
	return bridge.Config{
		FramePeriod: f.period,
		SyncTimeout: cfg.Scene.SyncTimeout,
		Console:     cfg.Scene.Console,
		Channel:     cfg.Relay.Channel,
		Notify:      src.notify,
	}
}

func (f *sceneFlags) subscribeOptions() []relay.SubscribeOption {
	if f.filter == "" {
		return nil
	}
	return []relay.SubscribeOption{relay.WithFilter(f.filter)}
}
