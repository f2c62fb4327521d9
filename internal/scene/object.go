package scene

import (
	"slices"
	"sync"
)

// Method is the only signature an addressable method may have: one string
// argument, no result.
type Method func(argument string)

// Object is a named entity in the scene with a table of methods keyed by
// name.
type Object struct {
	name string

	mu      sync.RWMutex
	methods map[string]Method
}

// NewObject creates an object with no methods.
func NewObject(name string) *Object {
	return &Object{name: name, methods: make(map[string]Method)}
}

// Name returns the object identifier.
func (o *Object) Name() string {
	return o.name
}

// Handle binds fn to method, replacing any previous binding. A nil fn
// removes the method.
func (o *Object) Handle(method string, fn Method) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()
	if fn == nil {
		delete(o.methods, method)
	} else {
		o.methods[method] = fn
	}
	return o
}

// Method looks up a method by name.
func (o *Object) Method(name string) (Method, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	fn, ok := o.methods[name]
	return fn, ok
}

// Methods returns the sorted method names.
func (o *Object) Methods() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.methods))
	for name := range o.methods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
