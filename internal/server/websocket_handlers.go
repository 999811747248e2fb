package server

import (
	"encoding/json"

	"newsboard/internal/middleware"
	"newsboard/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler streams board events to authenticated clients. Every
// connection receives feed events and its user's notifications; clients send
// {"action":"watch","post_id":N} to follow a post's comments and likes.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || uid == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed", "user_id", uid, "error", err)
			frame, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, frame)
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		middleware.Logger.Debug("websocket connected", "user_id", uid, "connections", s.hub.Connections())

		hello, _ := notifications.NewEvent(notifications.EventConnected, 0, uid, nil).Encode()
		client.TrySend([]byte(hello))

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
