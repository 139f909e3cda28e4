// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"context"
	"log/slog"
	"sync"
)

// parentResolver is the injectable substitute for "defaults to the parent
// frame": msgbridge never looks for a real parent frame itself (the iframe
// lifecycle is out of scope), so an embedder registers this once at
// startup if it wants Connect(ctx, nil) to succeed.
var parentResolverMu sync.Mutex
var parentResolverFunc func() (MessagePort, bool)

// SetParentResolver registers f as the source of the default peer when
// [Bridge.Connect] is called with a nil port. Pass nil to clear it.
func SetParentResolver(f func() (MessagePort, bool)) {
	parentResolverMu.Lock()
	defer parentResolverMu.Unlock()
	parentResolverFunc = f
}

func resolveParent() (MessagePort, bool) {
	parentResolverMu.Lock()
	f := parentResolverFunc
	parentResolverMu.Unlock()
	if f == nil {
		return nil, false
	}
	return f()
}

// ProxyPromise is the promise-like handle [Bridge.GetRemoteProxyPromise]
// returns: it settles exactly once, with the established RPC proxy or the
// handshake failure.
type ProxyPromise interface {
	Wait(ctx context.Context) (*DynamicClient, error)
}

// Bridge is the connection lifecycle façade: it owns at most one
// [Session] at a time against a bound peer, and exposes the connection as
// an observable [Cell].
type Bridge struct {
	id  string
	cfg *Config
	log SLogger

	cell *Cell[*DynamicClient]

	mu      sync.Mutex
	target  MessagePort
	session *Session
}

// NewBridge returns a [*Bridge] with no bound target and no session. cfg is
// reused for every [Session] the Bridge creates; pass nil for defaults.
func NewBridge(cfg *Config) *Bridge {
	if cfg == nil {
		cfg = NewConfig()
	}
	log := cfg.Log
	if log == nil {
		log = DefaultSLogger()
	}
	return &Bridge{
		id:   string(cfg.NewParticipantID()),
		cfg:  cfg,
		log:  log,
		cell: NewCell[*DynamicClient](),
	}
}

// ID returns the Bridge's stable identifier, useful for correlating log
// lines across a Bridge's lifetime.
func (b *Bridge) ID() string {
	return b.id
}

// Connect binds the Bridge to peer. A nil peer resolves
// through [SetParentResolver]; if none is registered, Connect fails
// synchronously with [KindNoTarget]. Connect is idempotent for the same
// peer with a live session; for a different peer (or no live session) it
// tears down any current session and starts a new one.
func (b *Bridge) Connect(ctx context.Context, peer MessagePort) error {
	if peer == nil {
		resolved, ok := resolveParent()
		if !ok {
			return newError(KindNoTarget, nil)
		}
		peer = resolved
	}

	b.mu.Lock()
	samePeer := b.target == peer
	liveSession := b.session != nil && b.session.State() != StateDestroyed && b.session.State() != StateFailed
	if samePeer && liveSession {
		b.mu.Unlock()
		return nil
	}
	prevSession := b.session
	b.target = peer
	b.mu.Unlock()

	if prevSession != nil {
		prevSession.Destroy()
	}

	if evicted := registerBridge(peer, b); evicted != nil && evicted != b {
		evicted.Destroy()
	}

	b.startSession(ctx, peer)
	return nil
}

// startSession creates a fresh Session against port and wires its
// lifecycle into the Bridge's observable cell.
func (b *Bridge) startSession(ctx context.Context, port MessagePort) {
	b.log.Info("sessionCreated", slog.String("bridgeId", b.id))

	var session *Session
	session = NewSession(port, b.cfg, SessionHooks{
		OnDestroyed: func() {
			b.log.Info("sessionDestroyed", slog.String("bridgeId", b.id))
			b.mu.Lock()
			stillCurrent := b.session == session
			if stillCurrent {
				b.session = nil
			}
			b.mu.Unlock()
			if stillCurrent {
				b.cell.Reset()
			}
		},
	})
	b.mu.Lock()
	b.session = session
	b.mu.Unlock()

	b.cell.Set(ctx, func(ctx context.Context) (*DynamicClient, error) {
		return session.WaitProxy(ctx)
	})
}

// Reset destroys the current session and, if a peer is still bound,
// immediately creates a fresh one against it.
func (b *Bridge) Reset() {
	b.mu.Lock()
	session := b.session
	target := b.target
	b.mu.Unlock()

	if session != nil {
		session.Destroy()
	}
	if target != nil {
		b.startSession(context.Background(), target)
		return
	}
	b.cell.Reset()
}

// IsConnected reports whether the observable cell currently holds an
// established proxy.
func (b *Bridge) IsConnected() bool {
	return b.cell.Get().State == StateHasData
}

// GetRemoteProxyPromise returns the promise backing the current session's
// proxy, or nil if no session is bound.
func (b *Bridge) GetRemoteProxyPromise() ProxyPromise {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	return b.session.future
}

// GetRemoteProxyObservable returns the observable loadable for reactive
// consumers.
func (b *Bridge) GetRemoteProxyObservable() *Cell[*DynamicClient] {
	return b.cell
}

// Destroy tears down the current session (if any), unregisters the Bridge
// from the global registry, and leaves the Bridge with no bound target.
func (b *Bridge) Destroy() {
	b.mu.Lock()
	session := b.session
	target := b.target
	b.session = nil
	b.target = nil
	b.mu.Unlock()

	if session != nil {
		session.Destroy()
	}
	if target != nil {
		unregisterBridge(target, b)
		b.log.Info("targetWindowChanged", slog.String("bridgeId", b.id), slog.String("target", "none"))
	}
	b.cell.Reset()
}
