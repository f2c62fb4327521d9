package scene

import (
	"errors"

	"github.com/dop251/goja"
)

// require is the loader for the bridge:scene module.
func (s *Scene) require(vm *goja.Runtime, module *goja.Object) {
	exports := module.Get("exports").(*goja.Object)

	// add(name: string, methods: object): void
	// Every function-valued property of methods becomes a method taking one
	// string. Exceptions thrown by those functions are logged and swallowed.
	_ = exports.Set("add", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		methodsVal := call.Argument(1)
		if goja.IsUndefined(methodsVal) || goja.IsNull(methodsVal) {
			panic(vm.NewTypeError("add: methods object is required"))
		}
		methods := methodsVal.ToObject(vm)
		obj := NewObject(name)
		for _, key := range methods.Keys() {
			fn, ok := goja.AssertFunction(methods.Get(key))
			if !ok {
				continue
			}
			obj.Handle(key, s.jsMethod(vm, name, key, methods, fn))
		}
		if err := s.Add(obj); err != nil {
			if errors.Is(err, ErrObjectExists) {
				panic(vm.NewTypeError("add: " + err.Error()))
			}
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})

	// remove(name: string): boolean
	_ = exports.Set("remove", func(name string) bool {
		return s.Remove(name)
	})

	// has(name: string): boolean
	_ = exports.Set("has", func(name string) bool {
		_, ok := s.Lookup(name)
		return ok
	})

	// names(): string[]
	_ = exports.Set("names", func() []string {
		return s.Names()
	})

	// frame(): number
	_ = exports.Set("frame", func() uint64 {
		return s.Frame()
	})

	// declare(...symbols: string[]): void
	_ = exports.Set("declare", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			s.Declare(arg.String())
		}
		return goja.Undefined()
	})

	// onFrame(fn: (frame: number) => void): void
	_ = exports.Set("onFrame", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("onFrame: argument must be a function"))
		}
		s.jsHooks = append(s.jsHooks, fn)
		return goja.Undefined()
	})

	// post(object: string, method: string, argument: string): void
	// Queues a target from inside the scene, delivered next frame like any
	// other.
	_ = exports.Set("post", func(object, method, argument string) {
		s.Post(Target{Object: object, Method: method, Argument: argument})
	})
}

// jsMethod wraps a script function as a Method. It is only ever invoked from
// a frame, so it runs on the loop goroutine.
func (s *Scene) jsMethod(vm *goja.Runtime, object, method string, this *goja.Object, fn goja.Callable) Method {
	return func(argument string) {
		if _, err := fn(this, vm.ToValue(argument)); err != nil {
			s.logger.Warn("method threw", "object", object, "method", method, "error", err)
		}
	}
}
