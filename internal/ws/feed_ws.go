package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/TrevorThebe/cdstock/internal/auth"
	"github.com/TrevorThebe/cdstock/internal/observability"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// FeedHandler upgrades clients onto their personal notification/chat feed.
type FeedHandler struct {
	hub    *Hub
	tokens *auth.TokenService
}

// NewFeedHandler constructs a FeedHandler.
func NewFeedHandler(hub *Hub, tokens *auth.TokenService) *FeedHandler {
	return &FeedHandler{hub: hub, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handle authenticates the request, upgrades it, and registers the client
// under the authenticated user id.
func (h *FeedHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("cdstock/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	// Browsers cannot set headers on websocket requests, so the token is
	// also accepted as a query parameter.
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(userID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.feeds", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload: map[string]interface{}{
			"ws":       map[string]interface{}{"event": "ws_connect", "conn_id": info.ConnID},
			"identity": map[string]interface{}{"user_id": userID, "ip": info.IP},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))

	go h.keepAlive(conn)
	go h.readLoop(conn, userID)
}

func (h *FeedHandler) readLoop(conn *websocket.Conn, userID string) {
	defer func() {
		h.hub.RemoveClient(userID, conn)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
	}
}

func (h *FeedHandler) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
			return
		}
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	return c.Query("token")
}
