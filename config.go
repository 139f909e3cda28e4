// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import "time"

// DefaultHandshakeTimeout is the default time a [Session] waits to reach
// ESTABLISHED before failing.
const DefaultHandshakeTimeout = 10 * time.Second

// DefaultCallTimeout is the default time an outgoing RPC call waits for a
// REPLY before failing with [KindCallTimeout].
const DefaultCallTimeout = 30 * time.Second

// Config holds common configuration for a [Session] or [Bridge].
//
// Pass this to constructor functions to pre-wire dependencies. All fields
// have sensible defaults set by [NewConfig].
type Config struct {
	// AllowedOrigins lists the origins permitted inbound and targeted
	// outbound (after the concrete origin is learned). Use [ParseOrigins]
	// or build the slice directly with [NewExactOrigin]/[NewRegexpOrigin].
	//
	// Set by [NewConfig] to an empty slice (nothing allowed).
	AllowedOrigins []OriginMatcher

	// Methods is the local method table exposed to the peer; nested
	// [MethodTable] values form multi-segment method paths.
	//
	// Set by [NewConfig] to nil (no methods exposed).
	Methods MethodTable

	// Timeout is the handshake timeout.
	//
	// Set by [NewConfig] to [DefaultHandshakeTimeout].
	Timeout time.Duration

	// CallTimeout is the per-RPC-call timeout. Zero disables per-call
	// timeouts entirely.
	//
	// Set by [NewConfig] to [DefaultCallTimeout].
	CallTimeout time.Duration

	// Log is the [SLogger] to use for structured logging.
	//
	// Set by [NewConfig] to [DefaultSLogger].
	Log SLogger

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// NewParticipantID generates participant identifiers.
	//
	// Set by [NewConfig] to [NewParticipantID].
	NewParticipantID func() ParticipantID

	// TimeNow returns the current time. [Session] and [DynamicClient] use
	// it to compute the "elapsed" field on handshakeDone/dispatchDone/
	// callDone log events.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		AllowedOrigins:   nil,
		Methods:          nil,
		Timeout:          DefaultHandshakeTimeout,
		CallTimeout:      DefaultCallTimeout,
		Log:              DefaultSLogger(),
		ErrClassifier:    DefaultErrClassifier,
		NewParticipantID: NewParticipantID,
		TimeNow:          time.Now,
	}
}
