// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"context"
	"sync"
)

// LoadState is the state tag of a [Loadable].
type LoadState int

// The four observable loading states.
const (
	StateUninitialized LoadState = iota
	StateLoading
	StateHasData
	StateHasError
)

// String returns a human-readable name for s.
func (s LoadState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateHasData:
		return "hasData"
	case StateHasError:
		return "hasError"
	default:
		return "unknown"
	}
}

// Loadable is a four-state observable value: a slot that holds nothing, an
// in-flight operation, a resolved value, or a captured error.
type Loadable[T any] struct {
	State LoadState
	Data  T
	Err   error
}

// Uninitialized returns the empty [Loadable].
func Uninitialized[T any]() Loadable[T] {
	return Loadable[T]{State: StateUninitialized}
}

// Loading returns a [Loadable] representing an in-flight operation.
func Loading[T any]() Loadable[T] {
	return Loadable[T]{State: StateLoading}
}

// HasData returns a resolved [Loadable] holding data.
func HasData[T any](data T) Loadable[T] {
	return Loadable[T]{State: StateHasData, Data: data}
}

// HasError returns a rejected [Loadable] holding err.
func HasError[T any](err error) Loadable[T] {
	return Loadable[T]{State: StateHasError, Err: err}
}

// Cell is a subscribable slot holding a [Loadable][T]: setting a new
// operation transitions to loading synchronously, then to hasData/hasError
// when the operation completes. The latest value is kept and replayed to
// late subscribers; earlier transitions are not.
type Cell[T any] struct {
	mu        sync.Mutex
	current   Loadable[T]
	observers []func(Loadable[T])
}

// NewCell returns a [*Cell] starting in the uninitialized state.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{current: Uninitialized[T]()}
}

// Get returns the cell's current value.
func (c *Cell[T]) Get() Loadable[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Subscribe registers observer and immediately replays the current value to
// it (memoization: a late subscriber does not need to trigger a fresh
// evaluation to learn the current state). Returns a function that removes
// the subscription.
func (c *Cell[T]) Subscribe(observer func(Loadable[T])) (unsubscribe func()) {
	c.mu.Lock()
	c.observers = append(c.observers, observer)
	idx := len(c.observers) - 1
	current := c.current
	c.mu.Unlock()

	observer(current)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.observers) {
			c.observers[idx] = nil
		}
	}
}

func (c *Cell[T]) set(v Loadable[T]) {
	c.mu.Lock()
	c.current = v
	observers := append([]func(Loadable[T]){}, c.observers...)
	c.mu.Unlock()
	for _, o := range observers {
		if o != nil {
			o(v)
		}
	}
}

// Reset transitions the cell back to uninitialized, as when a [Bridge] loses
// its bound peer entirely.
func (c *Cell[T]) Reset() {
	c.set(Uninitialized[T]())
}

// Set transitions the cell to loading synchronously, then runs fn in its own
// goroutine and transitions to hasData or hasError with its result.
// Replacing an already-settled cell with a new Set call re-enters loading
// even if the previous state was hasData or hasError.
func (c *Cell[T]) Set(ctx context.Context, fn func(ctx context.Context) (T, error)) {
	c.set(Loading[T]())
	go func() {
		data, err := fn(ctx)
		if err != nil {
			c.set(HasError[T](err))
			return
		}
		c.set(HasData[T](data))
	}()
}
