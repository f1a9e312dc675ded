package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPLink carries the pairing over HTTP between two daemons. Each device
// mounts Router() on its own listener and points peerURL at the other
// side. Outbound delivery happens on background goroutines so callers
// never block on a slow or unreachable peer; context payloads are
// retained locally and re-pushed when the peer becomes reachable again,
// preserving the latest-context-wins semantics.
type HTTPLink struct {
	peerURL string
	client  *http.Client
	log     *slog.Logger

	mu         sync.Mutex
	activated  bool
	latest     map[string][]byte
	undeliv    map[string]bool
	ctxHandler ContextHandler
	msgHandler MessageHandler

	flushMu sync.Mutex // serializes flush passes
	wg      sync.WaitGroup
}

// NewHTTPLink creates a link targeting the peer's base URL. An optional
// client overrides the transport (tsnet dialing, test servers).
func NewHTTPLink(peerURL string, client *http.Client, log *slog.Logger) *HTTPLink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPLink{
		peerURL: strings.TrimRight(peerURL, "/"),
		client:  client,
		log:     log,
		latest:  map[string][]byte{},
		undeliv: map[string]bool{},
	}
}

type contextEnvelope struct {
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload"`
}

// Router returns the inbound side of the link, for mounting on the
// device's HTTP server.
func (l *HTTPLink) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogging(l.log))

	r.Get("/v1/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
		// The peer announcing itself is our cue to redeliver anything it
		// missed while unreachable.
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.flush()
		}()
	})

	r.Post("/v1/context", func(w http.ResponseWriter, r *http.Request) {
		var env contextEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, `{"error":"invalid context envelope"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)

		l.mu.Lock()
		fn := l.ctxHandler
		l.mu.Unlock()
		if fn != nil {
			fn(env.Tag, env.Payload)
		}
	})

	r.Post("/v1/message", func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, `{"error":"invalid message"}`, http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)

		l.mu.Lock()
		fn := l.msgHandler
		l.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	})

	return r
}

// Activate performs the handshake against the peer and flushes retained
// context on success.
func (l *HTTPLink) Activate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.peerURL+"/v1/ping", nil)
	if err != nil {
		return fmt.Errorf("building ping request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinging peer: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer ping returned %s", resp.Status)
	}

	l.mu.Lock()
	l.activated = true
	l.mu.Unlock()
	l.flush()
	return nil
}

// SetContext replaces the latest payload for a tag and schedules delivery
// to the peer. The caller never waits on the transport: on failure the
// payload stays retained and is redelivered on the next flush.
func (l *HTTPLink) SetContext(tag string, payload []byte) error {
	l.mu.Lock()
	if !l.activated {
		l.mu.Unlock()
		return ErrNotActivated
	}
	l.latest[tag] = payload
	l.undeliv[tag] = true
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.flush()
	}()
	return nil
}

// Send schedules a completion message, fire-and-forget. A transport
// failure loses the message; the caller never waits on the transport.
func (l *HTTPLink) Send(msg Message) error {
	l.mu.Lock()
	activated := l.activated
	l.mu.Unlock()
	if !activated {
		return ErrNotActivated
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.post("/v1/message", body); err != nil {
			l.log.Error("completion message lost", "error", err)
		}
	}()
	return nil
}

// HandleContext registers the inbound context handler.
func (l *HTTPLink) HandleContext(fn ContextHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ctxHandler = fn
}

// HandleMessage registers the inbound message handler.
func (l *HTTPLink) HandleMessage(fn MessageHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgHandler = fn
}

// Close deactivates the link and waits for in-flight deliveries to
// settle.
func (l *HTTPLink) Close() error {
	l.mu.Lock()
	l.activated = false
	l.mu.Unlock()
	l.wg.Wait()
	return nil
}

// flush attempts to deliver every undelivered tag, latest payload only.
// Tags that fail, or that were superseded while the post was in flight,
// stay marked for the next attempt. One flush pass runs at a time.
func (l *HTTPLink) flush() {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	if !l.activated {
		l.mu.Unlock()
		return
	}
	pending := make(map[string][]byte, len(l.undeliv))
	for tag := range l.undeliv {
		pending[tag] = l.latest[tag]
	}
	l.mu.Unlock()

	for tag, payload := range pending {
		env, err := json.Marshal(contextEnvelope{Tag: tag, Payload: payload})
		if err != nil {
			l.log.Error("encoding context envelope", "tag", tag, "error", err)
			continue
		}
		if err := l.post("/v1/context", env); err != nil {
			l.log.Debug("context delivery deferred", "tag", tag, "error", err)
			continue
		}
		l.mu.Lock()
		if bytes.Equal(l.latest[tag], payload) {
			delete(l.undeliv, tag)
		}
		l.mu.Unlock()
	}
}

func (l *HTTPLink) post(path string, body []byte) error {
	resp, err := l.client.Post(l.peerURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer returned %s for %s", resp.Status, path)
	}
	return nil
}

// requestLogging logs each inbound link request with status and duration.
func requestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("link request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
