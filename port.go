// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import "context"

// MessageEvent is an inbound delivery from a [MessagePort]: the raw payload
// plus the origin it was delivered from.
type MessageEvent struct {
	Origin string
	Data   []byte
}

// MessagePort abstracts the peer window (or any message-passing endpoint)
// a [Session] is paired against. This is the Go stand-in for the browser's
// window.postMessage / message event pair: acquiring a concrete
// [MessagePort] (e.g. wiring up an iframe's contentWindow, or a WASM
// js.Value wrapper) is the caller's responsibility -- msgbridge only
// depends on this interface.
type MessagePort interface {
	// PostMessage delivers data to the peer, targeted at targetOrigin (which
	// may be [WildcardOrigin]). Implementations should return promptly;
	// long-running sends should respect ctx cancellation.
	PostMessage(ctx context.Context, data []byte, targetOrigin string) error

	// AddMessageListener registers handler to be invoked for every inbound
	// [MessageEvent] and returns a function that unregisters it. Callers may
	// register more than one listener; each receives every event.
	AddMessageListener(handler func(MessageEvent)) (unsubscribe func())
}
