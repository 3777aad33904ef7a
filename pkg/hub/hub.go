package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrQueueFull is returned when a broadcast is dropped because the queue is
// at capacity.
var ErrQueueFull = errors.New("hub: broadcast queue full")

// DefaultQueueDepth is used when New is given a non-positive depth.
const DefaultQueueDepth = 256

// Hub maintains the set of subscribers of one topic and broadcasts to them
type Hub struct {
	topic  string
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	running atomic.Bool

	sent    atomic.Int64
	dropped atomic.Int64
	evicted atomic.Int64
}

// New creates a hub for topic whose broadcast queue holds depth messages
func New(topic string, depth int, logger *slog.Logger) *Hub {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		topic:      topic,
		logger:     logger.With("topic", topic),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, depth),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run delivers broadcasts until ctx is done, then closes every subscriber.
// Call it once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.remove(c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("subscriber connected", "subscriber", c.id, "subscribers", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				h.remove(c)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("subscriber disconnected",
				"subscriber", c.id,
				"written", c.Written(),
				"connected_for", time.Since(c.since).Round(time.Second),
				"subscribers", n,
			)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver hands msg to every subscriber, evicting any whose backlog is full.
func (h *Hub) deliver(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
			h.sent.Add(1)
		default:
			h.remove(c)
			h.evicted.Add(1)
			h.logger.Warn("evicted slow subscriber", "subscriber", c.id)
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	close(c.send)
}

// Broadcast queues a message for every subscriber without blocking
func (h *Hub) Broadcast(msg Message) error {
	select {
	case h.broadcast <- msg:
		return nil
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast queue full, dropping message")
		return ErrQueueFull
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Broadcast(NewMessage(data))
}

// Topic returns the hub's topic name
func (h *Hub) Topic() string {
	return h.topic
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning returns whether the hub loop is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats returns hub statistics
func (h *Hub) Stats() Stats {
	return Stats{
		Topic:       h.topic,
		Subscribers: h.ClientCount(),
		Sent:        h.sent.Load(),
		Dropped:     h.dropped.Load(),
		Evicted:     h.evicted.Load(),
	}
}

// Stats contains hub statistics
type Stats struct {
	Topic       string `json:"topic"`
	Subscribers int    `json:"subscribers"`
	Sent        int64  `json:"sent"`
	Dropped     int64  `json:"dropped"`
	Evicted     int64  `json:"evicted"`
}
