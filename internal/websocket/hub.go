package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

const (
	EventCartUpdated  = "cart_updated"
	EventCartSnapshot = "cart_snapshot"

	sendBufferSize      = 64
	broadcastBufferSize = 1024
)

// CartEvent is pushed to every open tab of a session
type CartEvent struct {
	Type string             `json:"type"`
	Cart model.CartSnapshot `json:"cart"`
}

// Client is one websocket connection of a cart session
type Client struct {
	Hub       *Hub
	Conn      *Conn
	SessionID string
	Send      chan []byte

	// newest cart version queued to Send; only touched by Hub.Run
	lastVersion uint64
}

// NewClient creates a client with a buffered outbound queue
func NewClient(hub *Hub, conn *Conn, sessionID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, sendBufferSize),
	}
}

// sessionMessage is a payload addressed to every client of a session.
// A non-zero Version is a cart version; older ones than a client has
// already been sent are dropped.
type sessionMessage struct {
	SessionID string
	Message   []byte
	Version   uint64
}

// clientMessage is a payload for a single client
type clientMessage struct {
	Client  *Client
	Message []byte
	Version uint64
}

// Hub tracks websocket clients per cart session (several tabs may share one)
type Hub struct {
	clients map[string][]*Client

	unregister chan *Client
	broadcast  chan *sessionMessage
	direct     chan *clientMessage

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *sessionMessage, broadcastBufferSize),
		direct:     make(chan *clientMessage, 256),
	}
}

// Run delivers queued cart events and processes unregistrations until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients[message.SessionID] {
				h.deliver(client, message.Message, message.Version)
			}
			h.mu.RUnlock()

		case message := <-h.direct:
			h.mu.RLock()
			if h.registered(message.Client) {
				h.deliver(message.Client, message.Message, message.Version)
			}
			h.mu.RUnlock()
		}
	}
}

// deliver queues message unless the client already has a newer cart.
// Caller holds h.mu.
func (h *Hub) deliver(client *Client, message []byte, version uint64) {
	if version != 0 {
		if version <= client.lastVersion {
			return
		}
		client.lastVersion = version
	}

	select {
	case client.Send <- message:
	default:
		// Slow reader: drop it instead of blocking the hub
		go h.Unregister(client)
		logger.Warn("Cart feed client buffer full, disconnecting", map[string]interface{}{
			"session_id": client.SessionID,
		})
	}
}

func (h *Hub) registered(client *Client) bool {
	for _, c := range h.clients[client.SessionID] {
		if c == client {
			return true
		}
	}
	return false
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.SessionID]
	if !ok {
		return
	}

	kept := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return
	}

	if len(kept) == 0 {
		delete(h.clients, client.SessionID)
	} else {
		h.clients[client.SessionID] = kept
	}
	close(client.Send)

	logger.Debug("Cart feed client unregistered", map[string]interface{}{
		"session_id":   client.SessionID,
		"session_tabs": len(kept),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, list := range h.clients {
		for _, c := range list {
			close(c.Send)
		}
		delete(h.clients, sessionID)
	}
}

// Register adds a client to its session. The client receives every cart
// change published after Register returns.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
	total := len(h.clients[client.SessionID])
	h.mu.Unlock()

	logger.Debug("Cart feed client registered", map[string]interface{}{
		"session_id":   client.SessionID,
		"session_tabs": total,
	})
}

// Unregister removes a client and closes its Send channel
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToSession queues message for every client of a session. A full
// broadcast queue drops the message; the next cart change resends the
// whole cart anyway.
func (h *Hub) SendToSession(sessionID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal cart feed message", err, nil)
		return err
	}

	h.enqueue(&sessionMessage{SessionID: sessionID, Message: data})
	return nil
}

func (h *Hub) enqueue(message *sessionMessage) {
	select {
	case h.broadcast <- message:
	default:
		logger.Warn("Cart feed broadcast queue full, message dropped", map[string]interface{}{
			"session_id": message.SessionID,
		})
	}
}

// PublishCart pushes a cart change; it matches service.CartChangeFunc.
// Changes delivered out of order never replace a newer cart.
func (h *Hub) PublishCart(sessionID string, snapshot model.CartSnapshot) {
	if !h.HasClients(sessionID) {
		return
	}
	data, err := json.Marshal(CartEvent{Type: EventCartUpdated, Cart: snapshot})
	if err != nil {
		logger.Error("Failed to marshal cart event", err, nil)
		return
	}
	h.enqueue(&sessionMessage{SessionID: sessionID, Message: data, Version: snapshot.Version})
}

// SendSnapshot queues the current cart for one registered client, typically
// right after Register.
func (h *Hub) SendSnapshot(client *Client, snapshot model.CartSnapshot) error {
	data, err := json.Marshal(CartEvent{Type: EventCartSnapshot, Cart: snapshot})
	if err != nil {
		return err
	}
	h.direct <- &clientMessage{Client: client, Message: data, Version: snapshot.Version}
	return nil
}

// HasClients reports whether any tab of the session is connected
func (h *Hub) HasClients(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID]) > 0
}
