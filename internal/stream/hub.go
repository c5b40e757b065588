// Package stream fans audit events out to websocket subscribers. The
// hub never blocks publishers: slow subscribers drop messages instead
// of stalling the ledger.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-ido-ledger/internal/domain"
)

// HubConfig configures subscriber connection behavior.
type HubConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// PongTimeout is how long a subscriber may go without answering a ping.
	PongTimeout time.Duration
	// SendBuffer is the per-subscriber message buffer.
	SendBuffer int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		PongTimeout:  60 * time.Second,
		SendBuffer:   256,
	}
}

// Hub broadcasts audit events to connected websocket clients.
type Hub struct {
	config   HubConfig
	logger   *log.Logger
	upgrader websocket.Upgrader

	subs   map[*subscriber]struct{}
	subsMu sync.RWMutex

	closed  atomic.Bool
	dropped atomic.Uint64
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewHub creates a hub. A nil config uses DefaultHubConfig.
func NewHub(config *HubConfig, logger *log.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		config: cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Publish broadcasts an audit event to all subscribers. Never blocks;
// messages to subscribers with full buffers are dropped and counted.
func (h *Hub) Publish(event *domain.AuditEvent) {
	if h.closed.Load() {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Printf("[stream] marshal event: %v", err)
		return
	}

	h.subsMu.RLock()
	defer h.subsMu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			h.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of connected clients.
func (h *Hub) SubscriberCount() int {
	h.subsMu.RLock()
	defer h.subsMu.RUnlock()
	return len(h.subs)
}

// Dropped returns the total messages dropped on slow subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// ServeHTTP upgrades the request to a websocket and streams events
// until the client disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[stream] upgrade: %v", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
		done: make(chan struct{}),
	}

	h.subsMu.Lock()
	h.subs[sub] = struct{}{}
	h.subsMu.Unlock()

	go h.writeLoop(sub)
	h.readLoop(sub)

	h.remove(sub)
}

// Close disconnects all subscribers and rejects new connections.
func (h *Hub) Close() error {
	if h.closed.Swap(true) {
		return nil
	}

	h.subsMu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[*subscriber]struct{})
	h.subsMu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	return nil
}

func (h *Hub) remove(sub *subscriber) {
	h.subsMu.Lock()
	delete(h.subs, sub)
	h.subsMu.Unlock()
	sub.close()
}

// readLoop consumes client frames to service pings and detect closes.
// Subscribers are read-only; any payload is discarded.
func (h *Hub) readLoop(sub *subscriber) {
	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the sole writer on the connection; the close frame is
// sent here too, so no other goroutine ever touches the conn for
// writing.
func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()
	defer sub.conn.Close()

	for {
		select {
		case <-sub.done:
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			sub.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case payload := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close signals shutdown. Safe from any goroutine; closing the conn and
// sending the close frame are left to writeLoop.
func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
	})
}
