// SPDX-License-Identifier: GPL-3.0-or-later

package msgbridge

import (
	"context"
	"log/slog"
	"sync"
)

// Messenger adapts a [MessagePort] to the handshake/RPC protocol: it
// enforces origin policy, learns the peer's concrete origin, filters
// self-echoes, and fans out inbound messages to registered handlers.
//
// A zero Messenger is not usable; construct one with [NewMessenger].
type Messenger struct {
	port           MessagePort
	allowedOrigins []OriginMatcher
	selfID         ParticipantID
	log            SLogger
	errClassifier  ErrClassifier

	mu             sync.Mutex
	concreteOrigin string
	haveOrigin     bool
	destroyed      bool
	handlers       []func(Message)
	unsubscribe    func()
}

// NewMessenger returns a [*Messenger] wrapping port.
//
// allowedOrigins is the list of origins permitted inbound and eligible as
// outbound targets. selfID is used to reject echoes of this
// participant's own outbound messages. A nil logger or classifier falls
// back to [DefaultSLogger]/[DefaultErrClassifier].
func NewMessenger(port MessagePort, allowedOrigins []OriginMatcher, selfID ParticipantID, log SLogger, errClassifier ErrClassifier) *Messenger {
	if log == nil {
		log = DefaultSLogger()
	}
	if errClassifier == nil {
		errClassifier = DefaultErrClassifier
	}
	m := &Messenger{
		port:           port,
		allowedOrigins: allowedOrigins,
		selfID:         selfID,
		log:            log,
		errClassifier:  errClassifier,
	}
	m.unsubscribe = port.AddMessageListener(m.handleRawEvent)
	return m
}

// AddHandler registers handler to be invoked for every inbound [Message]
// that survives filtering. Returns a function that removes it.
func (m *Messenger) AddHandler(handler func(Message)) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
	idx := len(m.handlers) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.handlers) {
			m.handlers[idx] = nil
		}
	}
}

// handleRawEvent applies the inbound filtering order as a composed [Stage]
// pipeline: destroyed check, origin match, origin learning, envelope
// recognition, self-echo rejection, fan-out.
func (m *Messenger) handleRawEvent(evt MessageEvent) {
	pipeline := Compose3(
		Compose2(
			FuncAdapter[MessageEvent, MessageEvent](m.stageNotDestroyed),
			FuncAdapter[MessageEvent, MessageEvent](m.stageOriginAllowed),
		),
		FuncAdapter[MessageEvent, MessageEvent](m.stageLearnOrigin),
		FuncAdapter[MessageEvent, Message](m.stageDecode),
	)
	msg, err := Compose2(pipeline, FuncAdapter[Message, Message](m.stageRejectSelfEcho)).Call(context.Background(), evt)
	if err != nil {
		if !isDropped(err) {
			m.log.Debug("messenger drop", slog.String("reason", err.Error()))
		}
		return
	}
	m.fanOut(msg)
}

func (m *Messenger) stageNotDestroyed(_ context.Context, evt MessageEvent) (MessageEvent, error) {
	m.mu.Lock()
	destroyed := m.destroyed
	m.mu.Unlock()
	if destroyed {
		return MessageEvent{}, errDropped
	}
	return evt, nil
}

func (m *Messenger) stageOriginAllowed(_ context.Context, evt MessageEvent) (MessageEvent, error) {
	allowed, _ := originAllowed(m.allowedOrigins, evt.Origin)
	if !allowed {
		return MessageEvent{}, errDropped
	}
	return evt, nil
}

func (m *Messenger) stageLearnOrigin(_ context.Context, evt MessageEvent) (MessageEvent, error) {
	m.mu.Lock()
	if !m.haveOrigin {
		m.concreteOrigin = evt.Origin
		m.haveOrigin = true
	}
	m.mu.Unlock()
	return evt, nil
}

func (m *Messenger) stageDecode(_ context.Context, evt MessageEvent) (Message, error) {
	msg, ok := DecodeMessage(evt.Data)
	if !ok {
		return Message{}, errDropped
	}
	return msg, nil
}

func (m *Messenger) stageRejectSelfEcho(_ context.Context, msg Message) (Message, error) {
	if msg.FromParticipantID == string(m.selfID) {
		return Message{}, errDropped
	}
	return msg, nil
}

func (m *Messenger) fanOut(msg Message) {
	m.mu.Lock()
	handlers := append([]func(Message){}, m.handlers...)
	m.mu.Unlock()
	for _, h := range handlers {
		if h != nil {
			h(msg)
		}
	}
}

// concreteOriginFor resolves the outbound target origin for msg: SYN and
// DESTROY always target [WildcardOrigin]; every other message requires a
// learned concrete origin, with the null-origin exception when the
// wildcard is itself allowed.
func (m *Messenger) concreteOriginFor(msg Message) (string, error) {
	if msg.Type == MessageTypeSYN || msg.Type == MessageTypeDestroy {
		return WildcardOrigin, nil
	}
	m.mu.Lock()
	origin, have := m.concreteOrigin, m.haveOrigin
	m.mu.Unlock()
	if !have {
		return "", newError(KindNoConcreteOrigin, nil)
	}
	if origin == NullOrigin {
		if _, hasWildcard := originAllowed(m.allowedOrigins, origin); hasWildcard {
			return WildcardOrigin, nil
		}
	}
	return origin, nil
}

// SendMessage sends msg to the peer, honoring the outbound origin policy.
// Returns true on success. On failure -- the messenger is destroyed, no
// concrete origin has been learned yet, or the underlying port rejects the
// send -- returns false and, if onError is non-nil, invokes it with the
// classifying error. A rejected CALL is reported as [KindCallSendFailed];
// any other rejected message as [KindHandshakeSendFailed].
func (m *Messenger) SendMessage(ctx context.Context, msg Message, onError func(error)) bool {
	m.mu.Lock()
	destroyed := m.destroyed
	m.mu.Unlock()
	if destroyed {
		m.reportSendError(onError, newError(KindDestroyed, nil))
		return false
	}

	targetOrigin, err := m.concreteOriginFor(msg)
	if err != nil {
		m.reportSendError(onError, err)
		return false
	}

	sendFailed := KindHandshakeSendFailed
	if msg.Type == MessageTypeCall {
		sendFailed = KindCallSendFailed
	}

	data, err := msg.Encode()
	if err != nil {
		m.reportSendError(onError, newError(sendFailed, err))
		return false
	}

	if err := m.port.PostMessage(ctx, data, targetOrigin); err != nil {
		m.reportSendError(onError, newError(sendFailed, err))
		return false
	}
	return true
}

func (m *Messenger) reportSendError(onError func(error), err error) {
	m.log.Debug("messenger send failed",
		slog.String("errClass", m.errClassifier.Classify(err)),
		slog.String("err", err.Error()),
	)
	if onError != nil {
		onError(err)
	}
}

// Destroy unregisters the inbound listener, clears handlers, and refuses
// further sends. Idempotent.
func (m *Messenger) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.handlers = nil
	unsubscribe := m.unsubscribe
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
