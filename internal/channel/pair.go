package channel

import (
	"context"
	"errors"
	"sync"
)

// ErrNotActivated is returned for sends attempted before activation.
var ErrNotActivated = errors.New("channel not activated")

// ErrUnreachable is returned when the peer cannot be reached. Context
// payloads are retained and redelivered on reconnection; messages are lost.
var ErrUnreachable = errors.New("peer unreachable")

// Endpoint is one side of an in-process Pair. It implements Link with the
// same store-and-forward context semantics as a real device pairing and a
// connectivity toggle, so bridges can be exercised without paired hardware.
type Endpoint struct {
	mu         sync.Mutex
	peer       *Endpoint
	activated  bool
	reachable  bool
	latest     map[string][]byte
	undeliv    map[string]bool
	ctxHandler ContextHandler
	msgHandler MessageHandler
}

// NewPair returns two linked endpoints, initially reachable but not
// activated.
func NewPair() (*Endpoint, *Endpoint) {
	a := &Endpoint{reachable: true, latest: map[string][]byte{}, undeliv: map[string]bool{}}
	b := &Endpoint{reachable: true, latest: map[string][]byte{}, undeliv: map[string]bool{}}
	a.peer, b.peer = b, a
	return a, b
}

// Activate completes the handshake and delivers any context retained while
// the endpoint was inactive.
func (e *Endpoint) Activate(ctx context.Context) error {
	e.mu.Lock()
	e.activated = true
	e.mu.Unlock()
	e.flush()
	return nil
}

// SetReachable toggles connectivity to the peer. Reconnecting flushes the
// latest retained context per tag.
func (e *Endpoint) SetReachable(reachable bool) {
	e.mu.Lock()
	e.reachable = reachable
	e.mu.Unlock()
	if reachable {
		e.flush()
	}
}

// SetContext stores the latest payload for the tag and delivers it if the
// peer is currently reachable.
func (e *Endpoint) SetContext(tag string, payload []byte) error {
	e.mu.Lock()
	if !e.activated {
		e.mu.Unlock()
		return ErrNotActivated
	}
	e.latest[tag] = payload
	e.undeliv[tag] = true
	e.mu.Unlock()
	e.flush()
	return nil
}

// Send delivers the message to the peer, or drops it when unreachable.
func (e *Endpoint) Send(msg Message) error {
	e.mu.Lock()
	if !e.activated {
		e.mu.Unlock()
		return ErrNotActivated
	}
	if !e.reachable {
		e.mu.Unlock()
		return ErrUnreachable
	}
	peer := e.peer
	e.mu.Unlock()

	peer.deliverMessage(msg)
	return nil
}

// HandleContext registers the inbound context handler.
func (e *Endpoint) HandleContext(fn ContextHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctxHandler = fn
}

// HandleMessage registers the inbound message handler.
func (e *Endpoint) HandleMessage(fn MessageHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgHandler = fn
}

// Close marks the endpoint unreachable and deactivated.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activated = false
	e.reachable = false
	return nil
}

// flush pushes every undelivered tag to the peer, latest payload only.
// Delivery is synchronous; tests rely on that.
func (e *Endpoint) flush() {
	e.mu.Lock()
	if !e.activated || !e.reachable {
		e.mu.Unlock()
		return
	}
	pending := make(map[string][]byte, len(e.undeliv))
	for tag := range e.undeliv {
		pending[tag] = e.latest[tag]
		delete(e.undeliv, tag)
	}
	peer := e.peer
	e.mu.Unlock()

	// Deterministic order: data before cursor pings, matching the common
	// case where a ping refers to the dataset sent alongside it.
	if payload, ok := pending[TagData]; ok {
		peer.deliverContext(TagData, payload)
		delete(pending, TagData)
	}
	for tag, payload := range pending {
		peer.deliverContext(tag, payload)
	}
}

func (e *Endpoint) deliverContext(tag string, payload []byte) {
	e.mu.Lock()
	fn := e.ctxHandler
	e.mu.Unlock()
	if fn != nil {
		fn(tag, payload)
	}
}

func (e *Endpoint) deliverMessage(msg Message) {
	e.mu.Lock()
	fn := e.msgHandler
	e.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}
