package handlers

import (
	"github.com/anjiri1684/counsel_hub/logger"
	"github.com/anjiri1684/counsel_hub/services"
	"github.com/anjiri1684/counsel_hub/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WebsocketUpgrade only lets real websocket handshakes through.
func WebsocketUpgrade(c *fiber.Ctx) error {
	if websocketcontrib.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// ServeWs expects {"type":"auth","token":"..."} as the first message and then
// keeps the connection registered for in-app notifications. Anything the
// client sends afterwards other than ping is ignored.
func ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		logger.Log.Debugw("WebSocket auth failed: invalid or missing auth message", "error", err)
		_ = c.WriteJSON(fiber.Map{"type": "error", "message": "Invalid or missing auth message"})
		c.Close()
		return
	}

	userID, _, err := services.ParseToken(authMsg.Token)
	if err != nil {
		logger.Log.Debugw("WebSocket auth failed: invalid token", "error", err)
		_ = c.WriteJSON(fiber.Map{"type": "error", "message": "Invalid token"})
		c.Close()
		return
	}

	client := &websocket.Client{UserID: userID, Conn: c}
	websocket.Register <- client
	defer func() {
		websocket.Unregister <- client
		c.Close()
	}()
	_ = c.WriteJSON(fiber.Map{"type": "ready"})

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := c.ReadJSON(&msg); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				logger.Log.Debugw("WebSocket closed", "user_id", userID)
			} else {
				logger.Log.Debugw("WebSocket read error", "user_id", userID, "error", err)
			}
			return
		}
		if msg.Type == "ping" {
			websocket.Notify(userID, fiber.Map{"type": "pong"})
		}
	}
}
