package rpc

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// MethodFunc is an instance method bound to a freshly constructed receiver.
type MethodFunc[T any] func(recv *T, c *Call, args Args) (any, error)

// StaticFunc is a method that needs no receiver.
type StaticFunc func(c *Call, args Args) (any, error)

// Class is a named table of remotely callable methods.
type Class interface {
	// Name returns the class name used in "Class.method".
	Name() string
	// Methods returns the sorted names of all declared methods.
	Methods() []string
	lookup(method string) (target, bool)
	// seal makes the method table read-only.
	seal()
}

// target is one resolved method.
type target struct {
	static   bool
	abstract bool
	// anonymous methods skip the gateway's authentication requirement.
	anonymous bool
	invoke    func(c *Call, args Args) (any, error)
}

// ClassDef declares a class with receiver type T. A ClassDef is immutable once
// registered: declaring further methods then panics.
type ClassDef[T any] struct {
	name    string
	ctor    func(c *Call) (*T, error)
	methods map[string]target

	mu     sync.Mutex
	sealed bool
}

// NewClass declares a class. ctor builds a receiver for every instance call;
// a nil ctor uses a zero T.
func NewClass[T any](name string, ctor func(c *Call) (*T, error)) *ClassDef[T] {
	return &ClassDef[T]{
		name:    name,
		ctor:    ctor,
		methods: make(map[string]target),
	}
}

// Method declares an instance method. A nil fn declares the method without a
// body, which is never callable.
func (d *ClassDef[T]) Method(name string, fn MethodFunc[T]) *ClassDef[T] {
	if fn == nil {
		d.declare(name, target{abstract: true})
		return d
	}
	d.declare(name, target{invoke: func(c *Call, args Args) (any, error) {
		recv, err := d.construct(c)
		if err != nil {
			return nil, err
		}
		return fn(recv, c, args)
	}})
	return d
}

// Static declares a method that is called without a receiver.
func (d *ClassDef[T]) Static(name string, fn StaticFunc) *ClassDef[T] {
	if fn == nil {
		d.declare(name, target{static: true, abstract: true})
		return d
	}
	d.declare(name, target{static: true, invoke: fn})
	return d
}

func (d *ClassDef[T]) declare(name string, t target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sealed {
		panic(fmt.Sprintf("rpc: method %s.%s declared after the class was registered", d.name, name))
	}
	d.methods[name] = t
}

func (d *ClassDef[T]) seal() {
	d.mu.Lock()
	d.sealed = true
	d.mu.Unlock()
}

// Name implements Class.
func (d *ClassDef[T]) Name() string { return d.name }

// Methods implements Class.
func (d *ClassDef[T]) Methods() []string {
	return slices.Sorted(maps.Keys(d.methods))
}

func (d *ClassDef[T]) lookup(method string) (target, bool) {
	t, ok := d.methods[method]
	return t, ok
}

func (d *ClassDef[T]) construct(c *Call) (*T, error) {
	if d.ctor == nil {
		return new(T), nil
	}
	return d.ctor(c)
}
