// Package notify pushes order events to connected admin dashboards.
package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gorilla/websocket"
)

type OrderEvent struct {
	Type          string `json:"type"`
	OrderID       uint   `json:"order_id"`
	TotalPrice    string `json:"total_price"`
	TotalQuantity int    `json:"total_quantity"`
}

const (
	EventOrderPaid    = "order_paid"
	EventPaymentStart = "payment_started"
)

// Hub fans messages out to every connected websocket client.
type Hub struct {
	upgrader  websocket.Upgrader
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	done      chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // staff-only route, the token cookie already gates it
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 100), // buffered so publishers never block on slow clients
		done:      make(chan struct{}),
	}
}

// Run delivers queued messages until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					slog.Warn("WebSocket write error", "remote", client.RemoteAddr(), "error", err)
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Close() {
	close(h.done)
}

// Publish queues an event for all clients. It drops the event when the
// queue is full.
func (h *Hub) Publish(event OrderEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode order event", "error", err)
		return
	}
	select {
	case h.broadcast <- message:
	default:
		slog.Warn("Order event dropped, broadcast queue full", "order_id", event.OrderID)
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler mounts the hub on a Fiber route.
func (h *Hub) Handler() fiber.Handler {
	return adaptor.HTTPHandler(h)
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects. Incoming messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Error upgrading websocket", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	slog.Info("Client connected", "remote", conn.RemoteAddr())

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket read error", "error", err)
			}
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			slog.Info("Client disconnected", "remote", conn.RemoteAddr())
			return
		}
	}
}
