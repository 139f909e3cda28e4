// SPDX-License-Identifier: GPL-3.0-or-later
//
// Pending-call registry adapted from the request/response correlation
// pattern of this ecosystem's guest-bridge lineage (a map[id]*call guarded
// by a mutex, each entry completed via a dedicated channel), retargeted
// from a framed byte-stream transport to JSON envelopes over a
// [MessagePort].
//

package msgbridge

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// pendingCall is one outstanding outgoing CALL awaiting its REPLY.
type pendingCall struct {
	methodPath []string
	resultCh   chan callResult
	stopTimer  func() bool
}

type callResult struct {
	value   any
	isError bool
	err     error // transport-level failure (timeout, send failure, destroy)
}

// DynamicClient is the outgoing call proxy: a property-graph RPC surface
// realized in Go. Since Go has no dynamic property interception, a call
// path is built explicitly with [Call] instead of through chained
// property access.
//
// A DynamicClient is owned by exactly one [Session] and becomes unusable
// once that session is destroyed (every pending and future call rejects
// with [KindDestroyed]).
type DynamicClient struct {
	messenger   *Messenger
	selfID      ParticipantID
	channel     string
	callTimeout time.Duration
	log         SLogger
	timeNow     func() time.Time
	nextID      func() string

	mu        sync.Mutex
	pending   map[string]*pendingCall
	destroyed bool
}

// newDynamicClient constructs a [*DynamicClient]. CALL ids are generated
// from a per-client counter prefixed with selfID. A nil timeNow defaults
// to [time.Now].
func newDynamicClient(messenger *Messenger, selfID ParticipantID, channel string, callTimeout time.Duration, log SLogger, timeNow func() time.Time) *DynamicClient {
	if log == nil {
		log = DefaultSLogger()
	}
	if timeNow == nil {
		timeNow = time.Now
	}
	var counter uint64
	c := &DynamicClient{
		messenger:   messenger,
		selfID:      selfID,
		channel:     channel,
		callTimeout: callTimeout,
		log:         log,
		timeNow:     timeNow,
		pending:     make(map[string]*pendingCall),
	}
	c.nextID = func() string {
		counter++
		return fmt.Sprintf("%s-%d", selfID, counter)
	}
	return c
}

// Call returns an [*Invocation] bound to methodPath. Use [Invocation.Do]
// to actually send the CALL and await its reply.
func (c *DynamicClient) Call(methodPath ...string) *Invocation {
	return &Invocation{client: c, methodPath: methodPath}
}

// Invocation is a single method path awaiting exactly one [Do].
type Invocation struct {
	client     *DynamicClient
	methodPath []string
	used       bool
}

// ErrInvocationReused is returned by [Invocation.Do] when called more than
// once on the same [*Invocation]. Go has no "accessed but not called"
// then-guard the way a JS property-graph proxy does; this
// is the equivalent safeguard against silently re-firing a call.
var ErrInvocationReused = fmt.Errorf("msgbridge: invocation already performed")

// BindMethod returns a concrete function value of type F that performs
// c.Call(path...).Do under the hood: the typed alternative to [DynamicClient.Call]
// for callers who want a static Go function signature instead of the
// []any-based [Invocation] surface. F must be a func type; its first
// parameter may optionally be context.Context, and its last return value
// may optionally be error. A call through the bound function that fails
// zeroes every non-error return value.
func BindMethod[F any](c *DynamicClient, path ...string) F {
	var zero F
	ft := reflect.TypeOf(&zero).Elem()
	if ft.Kind() != reflect.Func {
		panic("msgbridge: BindMethod requires a function type")
	}
	wantsCtx := ft.NumIn() > 0 && ft.In(0) == reflect.TypeFor[context.Context]()

	fn := reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		ctx := context.Background()
		start := 0
		if wantsCtx {
			ctx = in[0].Interface().(context.Context)
			start = 1
		}
		args := make([]any, 0, len(in)-start)
		for _, v := range in[start:] {
			args = append(args, v.Interface())
		}
		result, err := c.Call(path...).Do(ctx, args...)
		return bindReturn(ft, result, err)
	})
	return fn.Interface().(F)
}

func bindReturn(ft reflect.Type, result any, err error) []reflect.Value {
	numOut := ft.NumOut()
	out := make([]reflect.Value, numOut)
	switch numOut {
	case 0:
		return out
	case 1:
		if ft.Out(0) == reflect.TypeFor[error]() {
			out[0] = errorValue(err)
			return out
		}
		out[0] = resultValue(ft.Out(0), result)
		return out
	default:
		out[0] = resultValue(ft.Out(0), result)
		for i := 1; i < numOut-1; i++ {
			out[i] = reflect.Zero(ft.Out(i))
		}
		out[numOut-1] = errorValue(err)
		return out
	}
}

func errorValue(err error) reflect.Value {
	v := reflect.New(reflect.TypeFor[error]()).Elem()
	if err != nil {
		v.Set(reflect.ValueOf(err))
	}
	return v
}

func resultValue(t reflect.Type, result any) reflect.Value {
	if result == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(result)
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t)
	}
	return reflect.Zero(t)
}

// Do sends the CALL with args and blocks until the REPLY arrives, the
// call times out, the send fails, or the owning session is destroyed.
func (inv *Invocation) Do(ctx context.Context, args ...any) (any, error) {
	if inv.used {
		return nil, ErrInvocationReused
	}
	inv.used = true
	return inv.client.invoke(ctx, inv.methodPath, args)
}

func (c *DynamicClient) invoke(ctx context.Context, methodPath []string, args []any) (any, error) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil, newCallError(KindDestroyed, methodPath, nil)
	}
	id := c.nextID()
	pc := &pendingCall{methodPath: methodPath, resultCh: make(chan callResult, 1)}
	c.pending[id] = pc
	c.mu.Unlock()

	if c.callTimeout > 0 {
		stop := context.AfterFunc(timeoutContext(c.callTimeout), func() {
			c.completeWithTimeout(id)
		})
		pc.stopTimer = stop
	}

	t0 := c.timeNow()
	c.log.Info("callStart", slog.String("id", id), slog.Any("methodPath", methodPath))

	msg := newBaseMessage(MessageTypeCall, c.selfID, c.channel)
	msg.ID = id
	msg.MethodPath = methodPath
	msg.Args = args

	ok := c.messenger.SendMessage(ctx, msg, nil)
	if !ok {
		c.removePending(id)
		return nil, newCallError(KindCallSendFailed, methodPath, nil)
	}

	select {
	case res := <-pc.resultCh:
		c.log.Info("callDone", slog.String("id", id), slog.Bool("isError", res.isError),
			slog.Duration("elapsed", c.timeNow().Sub(t0)))
		if res.err != nil {
			return nil, res.err
		}
		if res.isError {
			return nil, newCallError(KindMethodThrew, methodPath, fmt.Errorf("%v", res.value))
		}
		return res.value, nil
	case <-ctx.Done():
		c.removePending(id)
		return nil, ctx.Err()
	}
}

// timeoutContext is a detached context that becomes done after d; used to
// drive context.AfterFunc the same way nop.CancelWatchFunc drives a
// connection-close watcher off an arbitrary context's lifetime.
func timeoutContext(d time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	_ = cancel // the timer itself triggers AfterFunc; no separate cleanup needed
	return ctx
}

func (c *DynamicClient) completeWithTimeout(id string) {
	c.mu.Lock()
	pc, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return // already completed or destroyed
	}
	pc.resultCh <- callResult{err: newCallError(KindCallTimeout, pc.methodPath, fmt.Errorf("call to %s timed out", joinMethodPath(pc.methodPath)))}
}

func (c *DynamicClient) removePending(id string) {
	c.mu.Lock()
	pc, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if ok && pc.stopTimer != nil {
		pc.stopTimer()
	}
}

// handleReply processes an inbound REPLY: a missing callId
// is a late reply and is silently dropped.
func (c *DynamicClient) handleReply(msg Message) {
	c.mu.Lock()
	pc, ok := c.pending[msg.CallID]
	if ok {
		delete(c.pending, msg.CallID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if pc.stopTimer != nil {
		pc.stopTimer()
	}
	pc.resultCh <- callResult{value: msg.Value, isError: msg.IsError}
}

// destroy rejects every pending call with [KindDestroyed] and refuses
// future ones.
func (c *DynamicClient) destroy() {
	c.mu.Lock()
	c.destroyed = true
	pending := c.pending
	c.pending = make(map[string]*pendingCall)
	c.mu.Unlock()
	for _, pc := range pending {
		if pc.stopTimer != nil {
			pc.stopTimer()
		}
		pc.resultCh <- callResult{err: newCallError(KindDestroyed, pc.methodPath, nil)}
	}
}
