// websocket/hub.go
package websocket

import (
	"log"
	"net/http"
	"sync"

	gws "github.com/gorilla/websocket"

	"erpdocs/models"
	"erpdocs/utils"
)

// Client is one connected browser session, bucketed by department so that
// document events reach the people who can see the documents.
type Client struct {
	conn       *gws.Conn
	send       chan []byte
	userID     string
	department string
}

type Hub struct {
	mutex sync.Mutex
	// department -> clients; full-privilege users register under "*"
	clients map[string]map[*Client]bool
}

var hub = &Hub{clients: make(map[string]map[*Client]bool)}

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection. WebSocket clients authenticate with a
// token query parameter because browsers cannot set headers on upgrade.
func ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	bucket := claims.Department
	if claims.RoleLevel >= models.RoleLevelViewAll {
		bucket = "*"
	}

	client := &Client{
		conn:       conn,
		send:       make(chan []byte, 64),
		userID:     claims.UserID,
		department: bucket,
	}
	hub.register(client)
	log.Printf("WebSocket client connected: user=%s bucket=%s", client.userID, bucket)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[c.department] == nil {
		h.clients[c.department] = make(map[*Client]bool)
	}
	h.clients[c.department][c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if clients, ok := h.clients[c.department]; ok {
		if clients[c] {
			delete(clients, c)
			close(c.send)
		}
	}
}

// broadcast sends to the department's clients and to the "*" bucket.
func (h *Hub) broadcast(department string, data []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, bucket := range []string{department, "*"} {
		clients, ok := h.clients[bucket]
		if !ok {
			continue
		}
		for client := range clients {
			select {
			case client.send <- data:
			default:
				close(client.send)
				delete(clients, client)
			}
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(gws.TextMessage, message); err != nil {
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		hub.unregister(c)
		c.conn.Close()
	}()
	for {
		// Clients only listen; reads exist to detect disconnects
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
