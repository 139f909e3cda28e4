// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptMethodPlainValue(t *testing.T) {
	fn := AdaptMethod(func(a, b int) int { return a + b })
	result, err := fn(context.Background(), []any{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, result)
}

func TestAdaptMethodWithContext(t *testing.T) {
	fn := AdaptMethod(func(ctx context.Context, name string) (string, error) {
		return "hello " + name, nil
	})
	result, err := fn(context.Background(), []any{"world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result)
}

func TestAdaptMethodErrorReturn(t *testing.T) {
	boom := errors.New("boom")
	fn := AdaptMethod(func() error { return boom })
	result, err := fn(context.Background(), nil)
	assert.Nil(t, result)
	assert.Equal(t, boom, err)
}

func TestAdaptMethodArityMismatch(t *testing.T) {
	fn := AdaptMethod(func(a int) int { return a })
	_, err := fn(context.Background(), []any{1, 2})
	require.Error(t, err)
}

func TestAdaptMethodPanicsOnNonFunc(t *testing.T) {
	assert.Panics(t, func() { AdaptMethod(42) })
}

func TestResolveMethodNested(t *testing.T) {
	table := MethodTable{
		"math": MethodTable{
			"add": func(a, b int) int { return a + b },
		},
	}
	fn, ok := resolveMethod(table, []string{"math", "add"})
	require.True(t, ok)
	result, err := fn(context.Background(), []any{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 5, result)
}

func TestResolveMethodMissingSegment(t *testing.T) {
	table := MethodTable{"math": MethodTable{}}
	_, ok := resolveMethod(table, []string{"math", "sub"})
	assert.False(t, ok)
}

func TestResolveMethodNonCallableTerminal(t *testing.T) {
	table := MethodTable{"value": 42}
	_, ok := resolveMethod(table, []string{"value"})
	assert.False(t, ok)
}

func TestResolveMethodEmptyPath(t *testing.T) {
	_, ok := resolveMethod(MethodTable{}, nil)
	assert.False(t, ok)
}

func TestDispatchCallMethodNotFound(t *testing.T) {
	value, isError := dispatchCall(context.Background(), MethodTable{}, []string{"missing", "method"}, nil)
	assert.True(t, isError)
	assert.Equal(t, "Method missing.method is not found.", value)
}

func TestDispatchCallSuccess(t *testing.T) {
	table := MethodTable{"greet": func(name string) string { return "hi " + name }}
	value, isError := dispatchCall(context.Background(), table, []string{"greet"}, []any{"there"})
	assert.False(t, isError)
	assert.Equal(t, "hi there", value)
}

func TestDispatchCallMethodThrows(t *testing.T) {
	table := MethodTable{"fail": func() error { return errors.New("nope") }}
	value, isError := dispatchCall(context.Background(), table, []string{"fail"}, nil)
	assert.True(t, isError)
	assert.Equal(t, "nope", value)
}
