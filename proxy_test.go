// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"context"
	"testing"
	"time"

	"github.com/bassosimone/msgbridge/portstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicClientCallAndReply(t *testing.T) {
	port := &portstub.FuncPort{}
	var sent Message
	port.PostMessageFunc = func(_ context.Context, data []byte, _ string) error {
		msg, ok := DecodeMessage(data)
		require.True(t, ok)
		sent = msg
		return nil
	}
	m := NewMessenger(port, ParseOrigins(WildcardOrigin), "P1", nil, nil)
	client := newDynamicClient(m, "P1", "ch", time.Second, nil, nil)

	resultCh := make(chan any, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := client.Call("math", "add").Do(context.Background(), 2, 3)
		resultCh <- v
		errCh <- err
	}()

	require.Eventually(t, func() bool { return sent.ID != "" }, time.Second, time.Millisecond)
	client.handleReply(Message{CallID: sent.ID, Value: float64(5)})

	assert.Equal(t, float64(5), <-resultCh)
	assert.NoError(t, <-errCh)
}

func TestDynamicClientMethodThrew(t *testing.T) {
	port := &portstub.FuncPort{}
	var sent Message
	port.PostMessageFunc = func(_ context.Context, data []byte, _ string) error {
		msg, _ := DecodeMessage(data)
		sent = msg
		return nil
	}
	m := NewMessenger(port, ParseOrigins(WildcardOrigin), "P1", nil, nil)
	client := newDynamicClient(m, "P1", "ch", time.Second, nil, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Call("boom").Do(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool { return sent.ID != "" }, time.Second, time.Millisecond)
	client.handleReply(Message{CallID: sent.ID, Value: "method exploded", IsError: true})

	err := <-errCh
	require.Error(t, err)
	var bridgeErr *Error
	require.ErrorAs(t, err, &bridgeErr)
	assert.Equal(t, KindMethodThrew, bridgeErr.Kind)
}

func TestDynamicClientCallTimeout(t *testing.T) {
	port := &portstub.FuncPort{}
	m := NewMessenger(port, ParseOrigins(WildcardOrigin), "P1", nil, nil)
	client := newDynamicClient(m, "P1", "ch", 10*time.Millisecond, nil, nil)

	_, err := client.Call("slow").Do(context.Background())
	require.Error(t, err)
	var bridgeErr *Error
	require.ErrorAs(t, err, &bridgeErr)
	assert.Equal(t, KindCallTimeout, bridgeErr.Kind)
}

func TestDynamicClientSendFailure(t *testing.T) {
	port := &portstub.FuncPort{}
	port.PostMessageFunc = func(context.Context, []byte, string) error {
		return assert.AnError
	}
	m := NewMessenger(port, ParseOrigins(WildcardOrigin), "P1", nil, nil)
	client := newDynamicClient(m, "P1", "ch", time.Second, nil, nil)

	_, err := client.Call("x").Do(context.Background())
	require.Error(t, err)
	var bridgeErr *Error
	require.ErrorAs(t, err, &bridgeErr)
	assert.Equal(t, KindCallSendFailed, bridgeErr.Kind)
}

func TestInvocationReuseRejected(t *testing.T) {
	port := &portstub.FuncPort{}
	m := NewMessenger(port, ParseOrigins(WildcardOrigin), "P1", nil, nil)
	client := newDynamicClient(m, "P1", "ch", time.Second, nil, nil)

	inv := client.Call("x")
	go func() { _, _ = inv.Do(context.Background()) }()
	time.Sleep(10 * time.Millisecond)

	_, err := inv.Do(context.Background())
	assert.ErrorIs(t, err, ErrInvocationReused)
}

func TestBindMethod(t *testing.T) {
	port := &portstub.FuncPort{}
	var sent Message
	port.PostMessageFunc = func(_ context.Context, data []byte, _ string) error {
		msg, _ := DecodeMessage(data)
		sent = msg
		return nil
	}
	m := NewMessenger(port, ParseOrigins(WildcardOrigin), "P1", nil, nil)
	client := newDynamicClient(m, "P1", "ch", time.Second, nil, nil)

	add := BindMethod[func(ctx context.Context, a, b int) (int, error)](client, "add")

	resultCh := make(chan int, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := add(context.Background(), 2, 3)
		resultCh <- v
		errCh <- err
	}()

	require.Eventually(t, func() bool { return sent.ID != "" }, time.Second, time.Millisecond)
	client.handleReply(Message{CallID: sent.ID, Value: float64(5)})

	assert.Equal(t, 5, <-resultCh)
	assert.NoError(t, <-errCh)
}

func TestDynamicClientDestroyRejectsPending(t *testing.T) {
	port := &portstub.FuncPort{}
	m := NewMessenger(port, ParseOrigins(WildcardOrigin), "P1", nil, nil)
	client := newDynamicClient(m, "P1", "ch", time.Minute, nil, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Call("x").Do(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	client.destroy()

	err := <-errCh
	require.Error(t, err)
	var bridgeErr *Error
	require.ErrorAs(t, err, &bridgeErr)
	assert.Equal(t, KindDestroyed, bridgeErr.Kind)

	_, err = client.Call("y").Do(context.Background())
	require.Error(t, err)
	require.ErrorAs(t, err, &bridgeErr)
	assert.Equal(t, KindDestroyed, bridgeErr.Kind)
}
