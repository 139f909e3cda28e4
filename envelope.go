// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import "encoding/json"

// Namespace is the fixed string tag distinguishing msgbridge traffic from
// unrelated messages on the same [MessagePort]. It is constant across all
// implementations claiming wire compatibility and must not be changed.
const Namespace = "jotai-iframe-bridge"

// MessageType identifies the role of a [Message] on the wire.
type MessageType string

// The six message types of the handshake and RPC protocol.
const (
	MessageTypeSYN     MessageType = "SYN"
	MessageTypeACK1    MessageType = "ACK1"
	MessageTypeACK2    MessageType = "ACK2"
	MessageTypeDestroy MessageType = "DESTROY"
	MessageTypeCall    MessageType = "CALL"
	MessageTypeReply   MessageType = "REPLY"
)

// knownMessageTypes is the set [DecodeMessage] accepts.
var knownMessageTypes = map[MessageType]bool{
	MessageTypeSYN:     true,
	MessageTypeACK1:    true,
	MessageTypeACK2:    true,
	MessageTypeDestroy: true,
	MessageTypeCall:    true,
	MessageTypeReply:   true,
}

// Message is the on-wire envelope shared by every protocol message.
//
// Fields are tagged `omitempty` so that a given [MessageType] only carries
// the fields it needs: SYN/DESTROY carry none of the optional
// fields, ACK1/ACK2 carry ToParticipantID, CALL carries ID/MethodPath/Args,
// REPLY carries CallID/IsError/Value.
type Message struct {
	Namespace         string          `json:"namespace"`
	Type              MessageType     `json:"type"`
	FromParticipantID string          `json:"fromParticipantId"`
	Channel           string          `json:"channel,omitempty"`

	// ACK1 / ACK2
	ToParticipantID string `json:"toParticipantId,omitempty"`

	// CALL
	ID         string   `json:"id,omitempty"`
	MethodPath []string `json:"methodPath,omitempty"`
	Args       []any    `json:"args,omitempty"`

	// REPLY
	CallID  string `json:"callId,omitempty"`
	IsError bool   `json:"isError,omitempty"`
	Value   any    `json:"value,omitempty"`
}

// newBaseMessage returns a [Message] with the common fields filled in.
func newBaseMessage(typ MessageType, from ParticipantID, channel string) Message {
	return Message{
		Namespace:         Namespace,
		Type:              typ,
		FromParticipantID: string(from),
		Channel:           channel,
	}
}

// DecodeMessage reports whether raw is a protocol message: it must decode
// to a non-null object with a string namespace equal to [Namespace], a
// string type in the known set, and a string fromParticipantId. Any other
// value -- malformed JSON, a foreign namespace, an unknown type, a missing
// sender -- returns ok == false, and the caller must drop the payload
// rather than treat this as an error.
func DecodeMessage(raw []byte) (msg Message, ok bool) {
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, false
	}
	if msg.Namespace != Namespace {
		return Message{}, false
	}
	if !knownMessageTypes[msg.Type] {
		return Message{}, false
	}
	if msg.FromParticipantID == "" {
		return Message{}, false
	}
	return msg, true
}

// Encode marshals m to its wire representation.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
