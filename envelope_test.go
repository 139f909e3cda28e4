// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageRoundTrip(t *testing.T) {
	want := syn("P1")
	raw, err := want.Encode()
	require.NoError(t, err)

	got, ok := DecodeMessage(raw)
	require.True(t, ok)
	assert.Equal(t, want.Type, got.Type)
	assert.Equal(t, want.FromParticipantID, got.FromParticipantID)
}

func TestDecodeMessageMalformedJSON(t *testing.T) {
	_, ok := DecodeMessage([]byte(`not json`))
	assert.False(t, ok)
}

func TestDecodeMessageWrongNamespace(t *testing.T) {
	msg := syn("P1")
	msg.Namespace = "some-other-namespace"
	raw, err := msg.Encode()
	require.NoError(t, err)

	_, ok := DecodeMessage(raw)
	assert.False(t, ok, "a foreign namespace must be rejected")
}

func TestDecodeMessageUnknownType(t *testing.T) {
	msg := syn("P1")
	msg.Type = MessageType("PING")
	raw, err := msg.Encode()
	require.NoError(t, err)

	_, ok := DecodeMessage(raw)
	assert.False(t, ok, "an unrecognized message type must be rejected")
}

func TestDecodeMessageEmptyFromParticipantID(t *testing.T) {
	msg := syn("P1")
	msg.FromParticipantID = ""
	raw, err := msg.Encode()
	require.NoError(t, err)

	_, ok := DecodeMessage(raw)
	assert.False(t, ok, "a missing sender must be rejected")
}
