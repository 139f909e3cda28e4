// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from this module's own func.go/compose.go lineage (originally
// composable network-measurement primitives); generalized here into a
// filter pipeline for inbound [MessagePort] events.
//

package msgbridge

import (
	"context"
	"errors"
)

// Func is a generic operation that accepts an input and returns a result.
//
// Func instances can be composed using [Compose2] and [Compose3] to build
// type-safe pipelines where the output of one stage flows to the input of
// the next.
type Func[A, B any] interface {
	Call(ctx context.Context, input A) (B, error)
}

// FuncAdapter wraps a function as a [Func] implementation.
type FuncAdapter[A, B any] func(ctx context.Context, input A) (B, error)

// Call implements [Func].
func (f FuncAdapter[A, B]) Call(ctx context.Context, input A) (B, error) {
	return f(ctx, input)
}

// Compose2 chains two [Func] instances together into a pipeline.
//
// The output of op1 becomes the input to op2. If op1 returns an error,
// op2 is not called and the error is returned immediately.
func Compose2[A, B, C any](op1 Func[A, B], op2 Func[B, C]) Func[A, C] {
	return &compose2[A, B, C]{op1, op2}
}

type compose2[A, B, C any] struct {
	op1 Func[A, B]
	op2 Func[B, C]
}

func (c *compose2[A, B, C]) Call(ctx context.Context, input A) (C, error) {
	res, err := c.op1.Call(ctx, input)
	if err != nil {
		var zero C
		return zero, err
	}
	return c.op2.Call(ctx, res)
}

// Compose3 chains three [Func] instances together.
func Compose3[A, B, C, D any](op1 Func[A, B], op2 Func[B, C], op3 Func[C, D]) Func[A, D] {
	return Compose2(op1, Compose2(op2, op3))
}

// errDropped is the sentinel a [Stage] returns to mean "silently discard
// this event" rather than "this is a failure." [Messenger.handleRawEvent]
// stops the pipeline on errDropped without logging it as an error:
// protocol-level violations are silently dropped, never raised.
var errDropped = errors.New("msgbridge: dropped")

// Stage is a [Func] used as one step of the [Messenger] inbound pipeline.
// Returning errDropped short-circuits the remaining stages silently;
// returning any other error is a genuine failure.
type Stage[A, B any] = Func[A, B]

// isDropped reports whether err is (or wraps) the drop sentinel.
func isDropped(err error) bool {
	return errors.Is(err, errDropped)
}
