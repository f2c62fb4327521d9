package relay

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// filterEnv is the environment filter expressions are evaluated against.
type filterEnv struct {
	Channel string `expr:"channel"`
	Payload any    `expr:"payload"`
}

type filter struct {
	source  string
	program *vm.Program
}

func compileFilter(source string) (*filter, error) {
	program, err := expr.Compile(source, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", source, err)
	}
	return &filter{source: source, program: program}, nil
}

func (f *filter) match(ev Event) (bool, error) {
	out, err := expr.Run(f.program, filterEnv{Channel: ev.Channel, Payload: ev.Payload})
	if err != nil {
		return false, fmt.Errorf("run filter %q: %w", f.source, err)
	}
	match, _ := out.(bool)
	return match, nil
}
