// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionState is a state of the handshake/RPC lifetime state machine.
type SessionState int

// The six states of the handshake table.
const (
	StateInitiating SessionState = iota
	StatePaired
	StateEstablishingFollower
	StateEstablished
	StateFailed
	StateDestroyed
)

// String returns a human-readable name for s.
func (s SessionState) String() string {
	switch s {
	case StateInitiating:
		return "INITIATING"
	case StatePaired:
		return "PAIRED"
	case StateEstablishingFollower:
		return "ESTABLISHING_FOLLOWER"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFailed:
		return "FAILED"
	case StateDestroyed:
		return "DESTROYED"
	default:
		return "UNKNOWN"
	}
}

// SessionHooks lets the owner (typically a [Bridge]) observe a Session's
// high-level lifecycle without reaching into its internals.
type SessionHooks struct {
	// OnEstablished fires exactly once, when the handshake completes and
	// the RPC proxy becomes usable.
	OnEstablished func(client *DynamicClient)
	// OnFailed fires exactly once if the handshake fails (e.g. timeout).
	OnFailed func(err error)
	// OnDestroyed fires exactly once, when the session tears down, whether
	// by local action or by receiving DESTROY from the pair.
	OnDestroyed func()
}

// proxyFuture is a single-assignment future: the Go realization of "the
// pending proxy promise resolves exactly once".
type proxyFuture struct {
	done  chan struct{}
	once  sync.Once
	value *DynamicClient
	err   error
}

func newProxyFuture() *proxyFuture {
	return &proxyFuture{done: make(chan struct{})}
}

func (f *proxyFuture) resolve(client *DynamicClient) {
	f.once.Do(func() {
		f.value = client
		close(f.done)
	})
}

func (f *proxyFuture) reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the future settles or ctx is done.
func (f *proxyFuture) Wait(ctx context.Context) (*DynamicClient, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Session implements the handshake state machine and RPC lifetime for one
// paired peer. A Session pairs with exactly one peer, materializes an RPC
// proxy on establishment, and tears down on explicit destruction or on
// receiving DESTROY from its pair.
type Session struct {
	port    MessagePort
	localID ParticipantID
	channel string
	methods MethodTable

	handshakeTimeout time.Duration
	callTimeout      time.Duration

	log           SLogger
	errClassifier ErrClassifier
	hooks         SessionHooks

	messenger *Messenger
	future    *proxyFuture
	timeNow   func() time.Time

	mu                 sync.Mutex
	state              SessionState
	pairedID           *ParticipantID
	isLeader           bool
	client             *DynamicClient
	stopHandshake      func() bool
	removeMsgHandler   func()
	handshakeStartedAt time.Time
}

// NewSession constructs a Session bound to port, arms the handshake timeout,
// and immediately sends the opening SYN (INITIATING's entry action).
func NewSession(port MessagePort, cfg *Config, hooks SessionHooks) *Session {
	if cfg == nil {
		cfg = NewConfig()
	}
	localID := cfg.NewParticipantID()
	log := cfg.Log
	if log == nil {
		log = DefaultSLogger()
	}
	errClassifier := cfg.ErrClassifier
	if errClassifier == nil {
		errClassifier = DefaultErrClassifier
	}
	timeNow := cfg.TimeNow
	if timeNow == nil {
		timeNow = time.Now
	}

	s := &Session{
		port:             port,
		localID:          localID,
		methods:          cfg.Methods,
		handshakeTimeout: cfg.Timeout,
		callTimeout:      cfg.CallTimeout,
		log:              log,
		errClassifier:    errClassifier,
		hooks:            hooks,
		future:           newProxyFuture(),
		timeNow:          timeNow,
		state:            StateInitiating,
	}
	s.messenger = NewMessenger(port, cfg.AllowedOrigins, localID, log, errClassifier)
	s.removeMsgHandler = s.messenger.AddHandler(s.handleMessage)

	s.handshakeStartedAt = s.timeNow()
	s.log.Info("handshakeStart", slog.String("localId", string(localID)))

	s.armHandshakeTimeout()
	s.messenger.SendMessage(context.Background(), newBaseMessage(MessageTypeSYN, localID, s.channel), nil)

	return s
}

func (s *Session) armHandshakeTimeout() {
	if s.handshakeTimeout <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.handshakeTimeout)
	stop := context.AfterFunc(ctx, s.onHandshakeTimeout)
	s.mu.Lock()
	s.stopHandshake = func() bool {
		ok := stop()
		cancel()
		return ok
	}
	s.mu.Unlock()
}

func (s *Session) cancelHandshakeTimeout() {
	s.mu.Lock()
	stop := s.stopHandshake
	s.stopHandshake = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Session) onHandshakeTimeout() {
	s.mu.Lock()
	if s.state == StateEstablished || s.state == StateFailed || s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.mu.Unlock()

	err := newError(KindHandshakeTimeout, nil)
	s.log.Info("handshakeDone", slog.String("result", "timeout"),
		slog.Duration("elapsed", s.timeNow().Sub(s.handshakeStartedAt)))
	s.future.reject(err)
	if s.hooks.OnFailed != nil {
		s.hooks.OnFailed(err)
	}
}

// State returns the session's current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WaitProxy blocks until the handshake settles, returning the RPC proxy on
// success or the handshake failure on rejection.
func (s *Session) WaitProxy(ctx context.Context) (*DynamicClient, error) {
	return s.future.Wait(ctx)
}

func (s *Session) handleMessage(msg Message) {
	switch msg.Type {
	case MessageTypeSYN:
		s.onSYN(msg)
	case MessageTypeACK1:
		s.onACK1(msg)
	case MessageTypeACK2:
		s.onACK2(msg)
	case MessageTypeDestroy:
		s.onDestroyMessage(msg)
	case MessageTypeCall:
		s.onCall(msg)
	case MessageTypeReply:
		s.onReply(msg)
	}
}

// onSYN implements the INITIATING->PAIRED transition and the
// already-paired filtering rules.
func (s *Session) onSYN(msg Message) {
	s.mu.Lock()
	state := s.state
	if state == StateInitiating {
		peer := ParticipantID(msg.FromParticipantID)
		s.pairedID = &peer
		s.isLeader = s.localID > peer
		s.state = StatePaired
		s.mu.Unlock()

		s.messenger.SendMessage(context.Background(), newBaseMessage(MessageTypeSYN, s.localID, s.channel), nil)
		if s.isLeader {
			ack1 := newBaseMessage(MessageTypeACK1, s.localID, s.channel)
			ack1.ToParticipantID = string(peer)
			s.messenger.SendMessage(context.Background(), ack1, nil)
		}
		return
	}
	if state == StatePaired && s.pairedMatches(msg.FromParticipantID) {
		// Peer re-sent SYN (its own "peer wasn't ready" retry); nothing
		// further to do, we already paired.
	}
	s.mu.Unlock()
}

func (s *Session) pairedMatches(from string) bool {
	if s.pairedID == nil {
		return false
	}
	return string(*s.pairedID) == from
}

// onACK1 implements PAIRED->ESTABLISHING_FOLLOWER.
func (s *Session) onACK1(msg Message) {
	s.mu.Lock()
	if s.state != StatePaired || msg.ToParticipantID != string(s.localID) || !s.pairedMatches(msg.FromParticipantID) {
		s.mu.Unlock()
		return
	}
	s.state = StateEstablishingFollower
	peer := *s.pairedID
	s.mu.Unlock()

	ack2 := newBaseMessage(MessageTypeACK2, s.localID, s.channel)
	ack2.ToParticipantID = string(peer)
	s.messenger.SendMessage(context.Background(), ack2, nil)
	s.enterEstablished()
}

// onACK2 implements PAIRED->ESTABLISHED for the leader.
func (s *Session) onACK2(msg Message) {
	s.mu.Lock()
	if s.state != StatePaired || msg.ToParticipantID != string(s.localID) || !s.pairedMatches(msg.FromParticipantID) {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.enterEstablished()
}

func (s *Session) enterEstablished() {
	s.mu.Lock()
	if s.state == StateEstablished || s.state == StateDestroyed || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = StateEstablished
	client := newDynamicClient(s.messenger, s.localID, s.channel, s.callTimeout, s.log, s.timeNow)
	s.client = client
	s.mu.Unlock()

	s.cancelHandshakeTimeout()
	s.log.Info("handshakeDone", slog.String("result", "established"),
		slog.Duration("elapsed", s.timeNow().Sub(s.handshakeStartedAt)))
	s.future.resolve(client)
	if s.hooks.OnEstablished != nil {
		s.hooks.OnEstablished(client)
	}
}

// onDestroyMessage implements "receiving DESTROY from the pair triggers
// destroy locally".
func (s *Session) onDestroyMessage(msg Message) {
	s.mu.Lock()
	matches := s.pairedMatches(msg.FromParticipantID)
	s.mu.Unlock()
	if !matches {
		return
	}
	s.Destroy()
}

// onCall implements inbound method dispatch.
func (s *Session) onCall(msg Message) {
	s.mu.Lock()
	established := s.state == StateEstablished
	methods := s.methods
	s.mu.Unlock()
	if !established {
		return
	}
	t0 := s.timeNow()
	if methods == nil {
		s.log.Debug("dispatchStart", slog.Any("methodPath", msg.MethodPath))
		s.log.Debug("dispatchDone", slog.String("result", "no method table"),
			slog.Duration("elapsed", s.timeNow().Sub(t0)))
		return
	}

	s.log.Debug("dispatchStart", slog.Any("methodPath", msg.MethodPath))
	value, isError := dispatchCall(context.Background(), methods, msg.MethodPath, msg.Args)
	s.log.Debug("dispatchDone", slog.Bool("isError", isError),
		slog.Duration("elapsed", s.timeNow().Sub(t0)))

	reply := newBaseMessage(MessageTypeReply, s.localID, s.channel)
	reply.CallID = msg.ID
	reply.IsError = isError
	reply.Value = value
	s.messenger.SendMessage(context.Background(), reply, nil)
}

func (s *Session) onReply(msg Message) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return
	}
	client.handleReply(msg)
}

// Destroy runs the teardown sequence: idempotent, best-effort DESTROY
// emission, Messenger teardown, and rejection of every in-flight call and
// the proxy future if it never settled.
func (s *Session) Destroy() {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	wasEstablished := s.state == StateEstablished
	client := s.client
	s.state = StateDestroyed
	s.mu.Unlock()

	s.cancelHandshakeTimeout()

	if wasEstablished {
		s.messenger.SendMessage(context.Background(), newBaseMessage(MessageTypeDestroy, s.localID, s.channel), nil)
	}

	s.messenger.Destroy()
	if s.removeMsgHandler != nil {
		s.removeMsgHandler()
	}

	s.future.reject(newError(KindDestroyed, nil))
	if client != nil {
		client.destroy()
	}

	if s.hooks.OnDestroyed != nil {
		s.hooks.OnDestroyed()
	}
}
