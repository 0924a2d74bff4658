package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	ws "github.com/rmarquez/prestia/prestia-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

// JWTValidator validates a raw bearer token and resolves its workspace
type JWTValidator interface {
	ValidateToken(token string) (int32, error)
}

// WebSocketHandler upgrades HTTP connections and attaches clients to the hub
type WebSocketHandler struct {
	hub            *ws.Hub
	validator      JWTValidator
	allowedOrigins map[string]bool
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *ws.Hub, validator JWTValidator, corsOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(corsOrigins))
	for _, origin := range corsOrigins {
		allowed[origin] = true
	}

	h := &WebSocketHandler{
		hub:            hub,
		validator:      validator,
		allowedOrigins: allowed,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients omit Origin
				return true
			}
			return h.allowedOrigins[origin] || h.allowedOrigins["*"]
		},
	}
	return h
}

// HandleWS handles GET /ws. Browsers cannot set Authorization headers on
// WebSocket requests, so the token travels in the query string.
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return NewUnauthorizedError(c, "Missing token")
	}

	workspaceID, err := h.validator.ValidateToken(token)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket token validation failed")
		return NewUnauthorizedError(c, "Invalid token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("WebSocket upgrade failed")
		return nil
	}

	client := ws.NewClient(conn, workspaceID, h.hub)
	h.hub.Register(client)

	log.Info().
		Int32("workspace_id", workspaceID).
		Str("client_id", client.ID()).
		Int("workspace_clients", h.hub.ClientCount(workspaceID)).
		Msg("WebSocket client connected")

	go client.WritePump()
	go client.ReadPump()

	return nil
}
