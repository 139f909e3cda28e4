// SPDX-License-Identifier: GPL-3.0-or-later

// Package msgbridge provides a bidirectional, type-safe RPC runtime for
// message-based communication between two isolated peers connected by a
// [MessagePort] (the host/child-frame model of a browser, generalized to
// any pair of endpoints that can post byte payloads tagged with an origin
// and deliver inbound payloads to registered listeners).
//
// # Core Abstraction
//
// Two independently-started [Session] values pair with each other through
// a symmetric three-step handshake (SYN / ACK1 / ACK2), elect a leader
// deterministically by comparing participant identifiers, and transition
// to an established RPC channel. Once established, either side can invoke
// named methods on the other's method table and receive typed replies.
//
// # Available Components
//
// Protocol plumbing:
//   - [Message], [MessageType], [DecodeMessage]: the wire envelope and its
//     recognition predicate.
//   - [Messenger]: origin filtering, concrete-origin learning, inbound
//     fan-out, outbound origin policy, built on a small composable
//     [Stage] pipeline.
//   - [Session]: the handshake state machine and RPC channel owner.
//
// RPC surface:
//   - [DynamicClient]: outgoing call proxy (property-graph analogue).
//   - [MethodTable], [AdaptMethod]: incoming method dispatch.
//
// Lifecycle façade:
//   - [Bridge]: creates/destroys [Session] instances against a target
//     [MessagePort] and exposes the connection as a [Loadable] cell.
//
// Reactive state:
//   - [Loadable], [Cell]: a four-state observable value
//     (uninitialized | loading | hasData | hasError).
//
// # Error Handling
//
// All protocol-level failures are surfaced as [*Error] values tagged with
// a [Kind]. Transport-level violations that are routine under the
// "both sides start independently" handshake model (unknown sender,
// wrong addressee, self-echo) are silently dropped rather than raised;
// see [Messenger] and [Session] for the exact filtering order.
//
// # Observability
//
// Structured logging follows the [SLogger] abstraction; pass a
// [log/slog.Logger] or a test double satisfying the two-method interface.
// The default is a no-op logger, so the package is silent unless a
// caller opts in. Handshakes and calls emit *Start/*Done event pairs,
// in the same style session-oriented RPC transports use for latency
// analysis and error tracking. Error classification is configurable via
// [ErrClassifier]; by default errors are classified with
// [github.com/bassosimone/errclass].
//
// Use [NewParticipantID] to generate a unique, collision-negligible
// identifier (UUIDv7) for each [Session].
package msgbridge
