package websocket

import (
	"sync"

	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/metrics"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

// Envelope is a payload addressed to every open connection of one user.
type Envelope struct {
	UserID  uuid.UUID
	Payload any
}

var (
	clients    = make(map[uuid.UUID]map[*websocket.Conn]struct{})
	clientsMu  sync.RWMutex
	Register   = make(chan *Client)
	Unregister = make(chan *Client)
	Broadcast  = make(chan Envelope, 256)
	startOnce  sync.Once
)

// Start launches the hub loop once per process.
func Start() {
	startOnce.Do(func() { go RunHub() })
}

func RunHub() {
	for {
		select {
		case client := <-Register:
			clientsMu.Lock()
			if clients[client.UserID] == nil {
				clients[client.UserID] = make(map[*websocket.Conn]struct{})
			}
			clients[client.UserID][client.Conn] = struct{}{}
			clientsMu.Unlock()
			metrics.WSConnections.Inc()
			logger.Log.Debugw("Client registered", "user_id", client.UserID)
		case client := <-Unregister:
			remove(client.UserID, client.Conn)
		case env := <-Broadcast:
			deliver(env)
		}
	}
}

func remove(userID uuid.UUID, conn *websocket.Conn) {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	conns, ok := clients[userID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(clients, userID)
	}
	metrics.WSConnections.Dec()
	logger.Log.Debugw("Client unregistered", "user_id", userID)
}

func deliver(env Envelope) {
	clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(clients[env.UserID]))
	for conn := range clients[env.UserID] {
		conns = append(conns, conn)
	}
	clientsMu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(env.Payload); err != nil {
			logger.Log.Warnw("Error sending notification to client", "user_id", env.UserID, "error", err)
			conn.Close()
			remove(env.UserID, conn)
		}
	}
}

// Notify queues payload for userID without blocking; it is dropped when the
// hub is saturated or the user has no open connection.
func Notify(userID uuid.UUID, payload any) {
	select {
	case Broadcast <- Envelope{UserID: userID, Payload: payload}:
	default:
		logger.Log.Warnw("websocket broadcast queue full, dropping notification", "user_id", userID)
	}
}

func Connected(userID uuid.UUID) bool {
	clientsMu.RLock()
	defer clientsMu.RUnlock()
	return len(clients[userID]) > 0
}
