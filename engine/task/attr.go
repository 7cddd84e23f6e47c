package task

import (
	"context"
	"fmt"
)

type AttrKind int

const (
	AttrUnset AttrKind = iota
	AttrValue
	AttrFunc
	AttrAsync
)

func (k AttrKind) String() string {
	switch k {
	case AttrValue:
		return "value"
	case AttrFunc:
		return "func"
	case AttrAsync:
		return "async"
	default:
		return "unset"
	}
}

// Attr is a dynamically resolved task attribute. It holds exactly one of a
// literal value, a synchronous function of the execution states, or a
// context-aware function that may block. The zero Attr is undeclared.
//
// Declaring an Attr never evaluates it; only the execution engine calls Resolve.
type Attr[T any] struct {
	kind  AttrKind
	value T
	fn    func(*States) T
	async func(context.Context, *States) (T, error)
}

func Value[T any](v T) Attr[T] {
	return Attr[T]{kind: AttrValue, value: v}
}

func Func[T any](fn func(*States) T) Attr[T] {
	if fn == nil {
		return Attr[T]{}
	}
	return Attr[T]{kind: AttrFunc, fn: fn}
}

func AsyncFunc[T any](fn func(context.Context, *States) (T, error)) Attr[T] {
	if fn == nil {
		return Attr[T]{}
	}
	return Attr[T]{kind: AttrAsync, async: fn}
}

func (a Attr[T]) Kind() AttrKind {
	return a.kind
}

func (a Attr[T]) IsSet() bool {
	return a.kind != AttrUnset
}

// Literal returns the declared value when the attribute is a plain value.
func (a Attr[T]) Literal() (T, bool) {
	if a.kind != AttrValue {
		var zero T
		return zero, false
	}
	return a.value, true
}

// Resolve evaluates the attribute against a states snapshot. An undeclared
// attribute resolves to the zero value.
func (a Attr[T]) Resolve(ctx context.Context, states *States) (T, error) {
	var zero T
	switch a.kind {
	case AttrUnset:
		return zero, nil
	case AttrValue:
		return a.value, nil
	case AttrFunc:
		return a.fn(states), nil
	case AttrAsync:
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := a.async(ctx, states)
		if err != nil {
			return zero, fmt.Errorf("failed to resolve attribute: %w", err)
		}
		return v, nil
	default:
		return zero, fmt.Errorf("unknown attribute kind %d", a.kind)
	}
}

// ResolveOr is Resolve with a fallback for undeclared attributes.
func (a Attr[T]) ResolveOr(ctx context.Context, states *States, fallback T) (T, error) {
	if !a.IsSet() {
		return fallback, nil
	}
	return a.Resolve(ctx, states)
}
