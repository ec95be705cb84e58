// Package realtime pushes order events to connected browsers over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/canteenkart/notify"
	"github.com/yeremiapane/canteenkart/utils"
)

const (
	OwnersRoom = "owners"

	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub tracks clients per room. A client may sit in several rooms.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameOrigin,
		},
	}
}

// sameOrigin lets through clients without an Origin header (scanner apps)
// and browser pages served from this host. Anything else could ride the
// session cookie from another site.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (h *Hub) join(c *Client, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		if h.rooms[room] == nil {
			h.rooms[room] = make(map[*Client]struct{})
		}
		h.rooms[room][c] = struct{}{}
	}
}

func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.rooms {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast sends msg to every client in room. Dead clients are dropped.
func (h *Hub) Broadcast(room string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("marshal realtime message %s: %v", msg.Event, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			utils.ErrorLogger.Warnf("dropping realtime client in %s: %v", room, err)
			h.leave(c)
			c.conn.Close()
		}
	}
}

// Notify routes order events: new orders go to owners, updates go to owners
// and to the customer who placed the order.
func (h *Hub) Notify(_ context.Context, ev notify.Event) {
	msg := Message{Event: ev.Name, Data: ev}
	switch ev.Name {
	case notify.EventNewOrder:
		h.Broadcast(OwnersRoom, msg)
	case notify.EventOrderUpdate:
		h.Broadcast(OwnersRoom, msg)
		if ev.UserID != 0 {
			h.Broadcast(UserRoom(ev.UserID), msg)
		}
	default:
		h.Broadcast(OwnersRoom, msg)
	}
}

// Serve upgrades the request and keeps the connection in rooms until the
// peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, rooms []string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{conn: conn}
	h.join(client, rooms)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := client.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(done)
	h.leave(client)
	conn.Close()
	return nil
}
