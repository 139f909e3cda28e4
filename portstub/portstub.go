// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: this module's netstub.FuncConn / tlsstub.FuncTLSConn
// test-double idiom (function fields the test fills in as needed),
// retargeted from net.Conn to msgbridge.MessagePort.
//

// Package portstub provides test doubles for [msgbridge.MessagePort].
package portstub

import (
	"context"
	"sync"

	"github.com/bassosimone/msgbridge"
)

// FuncPort is a [msgbridge.MessagePort] test double whose behavior is
// supplied via function fields, in the style of this ecosystem's other
// Func-suffixed stubs. A nil field falls back to a no-op/success default.
type FuncPort struct {
	PostMessageFunc func(ctx context.Context, data []byte, targetOrigin string) error

	mu        sync.Mutex
	listeners []func(msgbridge.MessageEvent)
}

var _ msgbridge.MessagePort = (*FuncPort)(nil)

// PostMessage implements [msgbridge.MessagePort].
func (p *FuncPort) PostMessage(ctx context.Context, data []byte, targetOrigin string) error {
	if p.PostMessageFunc != nil {
		return p.PostMessageFunc(ctx, data, targetOrigin)
	}
	return nil
}

// AddMessageListener implements [msgbridge.MessagePort].
func (p *FuncPort) AddMessageListener(handler func(msgbridge.MessageEvent)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, handler)
	idx := len(p.listeners) - 1
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if idx < len(p.listeners) {
			p.listeners[idx] = nil
		}
	}
}

// Deliver synthesizes an inbound [msgbridge.MessageEvent] as if it arrived
// from origin, invoking every registered listener synchronously. Tests use
// this to drive a [FuncPort] without a real peer.
func (p *FuncPort) Deliver(origin string, data []byte) {
	p.mu.Lock()
	listeners := append([]func(msgbridge.MessageEvent){}, p.listeners...)
	p.mu.Unlock()
	evt := msgbridge.MessageEvent{Origin: origin, Data: data}
	for _, l := range listeners {
		if l != nil {
			l(evt)
		}
	}
}

// pipePort is one half of a [NewPipePair]: PostMessage on one side delivers
// synchronously, in the same goroutine, to the other side's listeners.
// This exercises reentrant delivery: a handler invoked during SendMessage
// must be tolerated.
type pipePort struct {
	origin string
	peer   *pipePort

	mu        sync.Mutex
	listeners []func(msgbridge.MessageEvent)
}

var _ msgbridge.MessagePort = (*pipePort)(nil)

// NewPipePair returns two [msgbridge.MessagePort] halves wired directly to
// each other: posting on a delivers synchronously to b's listeners (tagged
// with originA) and vice versa. Useful for driving both sides of a
// handshake from a single goroutine in tests.
func NewPipePair(originA, originB string) (a, b msgbridge.MessagePort) {
	pa := &pipePort{origin: originA}
	pb := &pipePort{origin: originB}
	pa.peer = pb
	pb.peer = pa
	return pa, pb
}

func (p *pipePort) PostMessage(_ context.Context, data []byte, targetOrigin string) error {
	if targetOrigin != msgbridge.WildcardOrigin && targetOrigin != p.peer.origin {
		return nil
	}
	p.peer.mu.Lock()
	listeners := append([]func(msgbridge.MessageEvent){}, p.peer.listeners...)
	p.peer.mu.Unlock()
	evt := msgbridge.MessageEvent{Origin: p.origin, Data: data}
	for _, l := range listeners {
		if l != nil {
			l(evt)
		}
	}
	return nil
}

func (p *pipePort) AddMessageListener(handler func(msgbridge.MessageEvent)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, handler)
	idx := len(p.listeners) - 1
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if idx < len(p.listeners) {
			p.listeners[idx] = nil
		}
	}
}
