package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topics published by the service
const (
	TopicVault    = "vault"
	TopicSettings = "settings"
)

// Message is a server-sent event
type Message struct {
	Event string
	Topic string
	Data  string
}

// Client is a subscriber connection. Topics are fixed when the client is
// created.
type Client struct {
	ID     string
	Hub    *SSEHub
	Send   chan Message
	Topics map[string]bool
}

// SSEHub fans messages out to subscribed clients
type SSEHub struct {
	clients    map[string]*Client
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	doneOnce   sync.Once
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewSSEHub creates a new hub. Run must be called for it to deliver.
func NewSSEHub(logger *zap.Logger) *SSEHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SSEHub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan Message, 100),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// NewClient creates a client subscribed to topics. No topics, or "*",
// subscribes to everything.
func (h *SSEHub) NewClient(topics ...string) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		Hub:    h,
		Send:   make(chan Message, 256),
		Topics: make(map[string]bool),
	}
	for _, topic := range topics {
		if topic != "" && topic != "*" {
			c.Topics[topic] = true
		}
	}
	return c
}

// Register registers a client
func (h *SSEHub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister unregisters a client
func (h *SSEHub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast broadcasts a message to all subscribed clients
func (h *SSEHub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Run runs the hub's main loop until ctx is cancelled
func (h *SSEHub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("client", client.ID), zap.Int("total", total))

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for _, client := range h.clients {
				if !client.IsSubscribed(message.Topic) {
					continue
				}
				select {
				case client.Send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range slow {
				h.logger.Warn("dropping slow client", zap.String("client", client.ID))
				h.removeClient(client)
			}

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *SSEHub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client.ID]; exists {
		delete(h.clients, client.ID)
		close(client.Send)
		h.logger.Debug("client unregistered", zap.String("client", client.ID))
	}
}

// IsSubscribed checks if client is subscribed to a topic
func (c *Client) IsSubscribed(topic string) bool {
	if len(c.Topics) == 0 {
		return true
	}
	return c.Topics[topic]
}

// ClientCount returns the number of active clients
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// shutdown closes every client and releases blocked callers
func (h *SSEHub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[string]*Client)
}
