// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// ParticipantID identifies one end of a [Session].
//
// Lexicographic comparison (strings.Compare, which [ParticipantID] being a
// defined string type supports directly via the < operator) elects the
// handshake leader: the strictly greater identifier leads. Generation must
// provide enough entropy that two independently-started peers collide with
// negligible probability; a collision is an undefined-behavior condition of
// the protocol.
type ParticipantID string

// NewParticipantID returns a fresh [ParticipantID].
//
// It panics if the system random number generator fails, which should only
// happen under extraordinary circumstances -- the same contract UUIDv7
// span identifiers use elsewhere in this ecosystem.
func NewParticipantID() ParticipantID {
	return ParticipantID(runtimex.PanicOnError1(uuid.NewV7()).String())
}
