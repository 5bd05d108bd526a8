package handlers

import (
	"log"
	"time"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/middleware"
	"gtdsync/internal/models"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const wsWriteTimeout = 10 * time.Second

// WSHandler serves the push channel.
type WSHandler struct {
	hub *broadcast.Hub
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *broadcast.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// RegisterRoutes mounts GET /ws. The upgrade check runs before auth so plain
// HTTP requests get 426 rather than an auth error.
func (h *WSHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/ws", h.HandleUpgrade, auth, websocket.New(h.HandleSession))
}

// HandleUpgrade rejects non-WebSocket requests.
func (h *WSHandler) HandleUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
			"message": "WebSocket upgrade required",
		})
	}
	return c.Next()
}

// HandleSession streams every hub message to the client until either side closes.
// Frames sent by the client are read and discarded.
func (h *WSHandler) HandleSession(conn *websocket.Conn) {
	id, ok := conn.Locals(middleware.IdentityKey).(models.Identity)
	if !ok {
		log.Println("ws: connection without identity, closing")
		_ = conn.Close()
		return
	}

	session := h.hub.Register(id.ID)
	log.Printf("ws: %s connected (%d sessions)", id.Username, h.hub.Sessions())

	go func() {
		defer h.hub.Unregister(session)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for body := range session.Messages() {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			log.Printf("ws: write to %s failed: %v", id.Username, err)
			break
		}
	}
	h.hub.Unregister(session)
	log.Printf("ws: %s disconnected", id.Username)
}
