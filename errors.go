// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import "fmt"

// Kind categorizes the errors this package can surface.
type Kind string

// The error taxonomy.
const (
	// KindNoTarget: connect called with no peer and no parent frame resolver.
	KindNoTarget Kind = "NO_TARGET"
	// KindHandshakeTimeout: the handshake did not reach ESTABLISHED in time.
	KindHandshakeTimeout Kind = "HANDSHAKE_TIMEOUT"
	// KindHandshakeSendFailed: the port rejected a message other than a
	// CALL (a handshake message, a REPLY or a DESTROY).
	KindHandshakeSendFailed Kind = "HANDSHAKE_SEND_FAILED"
	// KindNoConcreteOrigin: a non-handshake message was sent before the
	// peer's origin was learned.
	KindNoConcreteOrigin Kind = "NO_CONCRETE_ORIGIN"
	// KindCallTimeout: an RPC call exceeded its configured timeout.
	KindCallTimeout Kind = "CALL_TIMEOUT"
	// KindCallSendFailed: the port rejected a CALL message.
	KindCallSendFailed Kind = "CALL_SEND_FAILED"
	// KindMethodNotFound: an inbound CALL named a path with no callable.
	KindMethodNotFound Kind = "METHOD_NOT_FOUND"
	// KindMethodThrew: a dispatched method returned an error.
	KindMethodThrew Kind = "METHOD_THREW"
	// KindDestroyed: the call or session was, or became, destroyed.
	KindDestroyed Kind = "DESTROYED"
)

// Error is the typed error value every failure mode in this package
// surfaces as. MethodPath is populated for errors a [DynamicClient] call
// returns ([KindCallTimeout], [KindCallSendFailed], [KindMethodThrew], and
// [KindDestroyed] when a call is rejected); it is empty for session-,
// messenger- and bridge-scoped errors.
type Error struct {
	Kind       Kind
	MethodPath []string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case len(e.MethodPath) > 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, joinMethodPath(e.MethodPath), e.Err)
	case len(e.MethodPath) > 0:
		return fmt.Sprintf("%s: %s", e.Kind, joinMethodPath(e.MethodPath))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

// Unwrap allows errors.Is / errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError constructs an [*Error] of the given kind.
func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// newCallError constructs an [*Error] scoped to a specific method path.
func newCallError(kind Kind, path []string, err error) *Error {
	return &Error{Kind: kind, MethodPath: append([]string(nil), path...), Err: err}
}

func joinMethodPath(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}
