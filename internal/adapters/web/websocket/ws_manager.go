package websocket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The wall client is same-origin or a native client with no
		// Origin header; browsers pointing elsewhere are rejected.
		return r.Header.Get("Origin") == ""
	},
}

// Message is the envelope every websocket frame carries.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Manager fans each poll cycle's device list out to connected wall
// clients.
type Manager struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[*websocket.Conn]struct{})}
}

// HandleWebSocket upgrades the connection and tracks it until the peer
// goes away. Clients are listen-only; inbound frames are drained and
// discarded.
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = struct{}{}
	count := len(m.clients)
	m.mu.Unlock()
	log.Printf("WebSocket connected: clients=%d", count)

	go func() {
		defer conn.Close()
		defer func() {
			m.mu.Lock()
			delete(m.clients, conn)
			m.mu.Unlock()
			log.Printf("WebSocket disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// BroadcastDevices pushes the cycle's device list to every client.
// A client that cannot keep up is dropped.
func (m *Manager) BroadcastDevices(list domain.DeviceList) {
	m.broadcast(Message{Type: "devices", Payload: list})
}

func (m *Manager) broadcast(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("WebSocket write failed, dropping client: %v", err)
			conn.Close()
			delete(m.clients, conn)
		}
	}
}
