// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"context"
	"fmt"
	"reflect"
)

// MethodFunc is the callable leaf of a [MethodTable]: it receives the
// CALL's args and returns a result or an error, invoking the terminal
// function with the spread args.
type MethodFunc func(ctx context.Context, args []any) (any, error)

// MethodTable is a nested map of callables; nested MethodTable values form
// multi-segment method paths. A value is either a MethodTable (to
// descend further), a [MethodFunc], or any function value adaptable via
// [AdaptMethod] (reflection-based parameter binding for callers who would
// rather register `func(ctx context.Context, a, b int) (int, error)`
// directly than hand-unpack an []any).
type MethodTable map[string]any

// AdaptMethod wraps an arbitrary function fn as a [MethodFunc] using
// reflection to convert the CALL's []any args into fn's declared parameter
// types. fn's first parameter may optionally be context.Context; its
// return signature must be (result, error) or just (error, implying a nil
// result) or just (result) (never fails).
//
// This lets a method table register idiomatic Go functions without
// writing []any-unpacking boilerplate by hand.
func AdaptMethod(fn any) MethodFunc {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic("msgbridge: AdaptMethod requires a function")
	}
	wantsCtx := t.NumIn() > 0 && t.In(0) == reflect.TypeFor[context.Context]()

	return func(ctx context.Context, args []any) (any, error) {
		in := make([]reflect.Value, 0, t.NumIn())
		if wantsCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		want := t.NumIn()
		if wantsCtx {
			want--
		}
		if len(args) != want {
			return nil, fmt.Errorf("msgbridge: method expects %d argument(s), got %d", want, len(args))
		}
		for i, a := range args {
			idx := i
			if wantsCtx {
				idx++
			}
			pt := t.In(idx)
			av := reflect.ValueOf(a)
			if !av.IsValid() {
				av = reflect.Zero(pt)
			} else if av.Type() != pt && av.Type().ConvertibleTo(pt) {
				av = av.Convert(pt)
			}
			in = append(in, av)
		}
		out := v.Call(in)
		return splitMethodReturn(out)
	}
}

func splitMethodReturn(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if err, ok := out[0].Interface().(error); ok {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		var err error
		if e, ok := out[len(out)-1].Interface().(error); ok {
			err = e
		}
		return out[0].Interface(), err
	}
}

// resolveMethod walks path through table, returning the terminal
// [MethodFunc]. ok is false if any segment is missing or the terminal
// value is neither a [MethodFunc] nor adaptable via [AdaptMethod].
func resolveMethod(table MethodTable, path []string) (fn MethodFunc, ok bool) {
	if len(path) == 0 || table == nil {
		return nil, false
	}
	var cur any = table
	for _, segment := range path {
		m, isTable := cur.(MethodTable)
		if !isTable {
			return nil, false
		}
		next, present := m[segment]
		if !present {
			return nil, false
		}
		cur = next
	}
	switch f := cur.(type) {
	case MethodFunc:
		return f, true
	case func(context.Context, []any) (any, error):
		return f, true
	case MethodTable:
		return nil, false
	default:
		defer func() { recover() }()
		return AdaptMethod(cur), true
	}
}

// dispatchCall resolves methodPath against table, invokes it, and returns
// the REPLY value/isError pair. methodPath not resolving to a callable
// yields the exact "Method <path> is not found." text.
func dispatchCall(ctx context.Context, table MethodTable, methodPath []string, args []any) (value any, isError bool) {
	fn, ok := resolveMethod(table, methodPath)
	if !ok {
		return fmt.Sprintf("Method %s is not found.", joinMethodPath(methodPath)), true
	}
	result, err := fn(ctx, args)
	if err != nil {
		return err.Error(), true
	}
	return result, false
}
