// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import "sync"

// globalRegistry is the process-wide peer-port -> Bridge map: a second
// Bridge constructed against a peer that already has one destroys the
// prior occupant before registering itself.
//
// Go has no weak map in the standard library applicable to an arbitrary
// MessagePort interface value (the weak package's facilities key off a
// concrete pointed-to type, not an interface), so this registry relies on
// explicit unregistration instead: entries are removed synchronously by
// [Bridge.Destroy]. A caller that lets a Bridge become unreachable without
// destroying it leaks its registry entry; document this contract to
// embedders rather than pretend weak semantics we cannot implement
// correctly against an interface type.
var globalRegistry = struct {
	mu      sync.Mutex
	entries map[MessagePort]*Bridge
}{entries: make(map[MessagePort]*Bridge)}

// registerBridge installs b as the occupant for port, evicting and
// returning any prior occupant (the caller is responsible for destroying
// it).
func registerBridge(port MessagePort, b *Bridge) (evicted *Bridge) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	prev := globalRegistry.entries[port]
	globalRegistry.entries[port] = b
	return prev
}

// unregisterBridge removes b's entry for port, but only if b is still the
// registered occupant (a Bridge that was itself evicted by a later
// registration must not clobber the new occupant on its own teardown).
func unregisterBridge(port MessagePort, b *Bridge) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	if globalRegistry.entries[port] == b {
		delete(globalRegistry.entries, port)
	}
}

// lookupBridge returns the Bridge currently registered for port, if any.
func lookupBridge(port MessagePort) (*Bridge, bool) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	b, ok := globalRegistry.entries[port]
	return b, ok
}
