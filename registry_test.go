// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"testing"

	"github.com/bassosimone/msgbridge/portstub"
	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterEvictsPriorOccupant(t *testing.T) {
	port := &portstub.FuncPort{}
	first := &Bridge{id: "first"}
	second := &Bridge{id: "second"}

	evicted := registerBridge(port, first)
	assert.Nil(t, evicted)

	evicted = registerBridge(port, second)
	assert.Same(t, first, evicted)

	got, ok := lookupBridge(port)
	assert.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistryUnregisterOnlyIfStillCurrent(t *testing.T) {
	port := &portstub.FuncPort{}
	first := &Bridge{id: "first"}
	second := &Bridge{id: "second"}

	registerBridge(port, first)
	registerBridge(port, second)

	// first was already evicted by second; unregistering it must not
	// clobber second's occupancy.
	unregisterBridge(port, first)
	got, ok := lookupBridge(port)
	assert.True(t, ok)
	assert.Same(t, second, got)

	unregisterBridge(port, second)
	_, ok = lookupBridge(port)
	assert.False(t, ok)
}
