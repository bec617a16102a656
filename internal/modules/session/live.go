package session

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"parkease/internal/pkg/jwt"
	"parkease/internal/pkg/response"
)

const (
	liveTick     = time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

// LiveFrame is one websocket message. Session is nil once nothing is active.
type LiveFrame struct {
	Type    string       `json:"type"`
	Session *LiveSession `json:"session"`
}

type LiveHandler struct {
	service  *Service
	jwt      *jwt.Service
	upgrader websocket.Upgrader
	tick     time.Duration
}

// NewLiveHandler streams the live bill. allowOrigin nil accepts any origin.
func NewLiveHandler(service *Service, jwtService *jwt.Service, allowOrigin func(origin string) bool) *LiveHandler {
	return &LiveHandler{
		service: service,
		jwt:     jwtService,
		tick:    liveTick,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowOrigin == nil || origin == "" || allowOrigin(origin)
			},
		},
	}
}

func (h *LiveHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws/sessions/active", h.Stream)
}

// Stream authenticates with ?token= because browsers cannot set headers
// on websocket handshakes.
func (h *LiveHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "AUTH_TOKEN_MISSING", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("live_ws_upgrade_failed user_id=%d error=%q", claims.UserID, err.Error())
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.readLoop(conn, cancel)
	h.writeLoop(ctx, conn, claims.UserID)
}

// readLoop only drains control frames and notices the client leaving.
func (h *LiveHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("live_ws_read_error error=%q", err.Error())
			}
			return
		}
	}
}

func (h *LiveHandler) writeLoop(ctx context.Context, conn *websocket.Conn, userID int64) {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		frame := LiveFrame{Type: "tick"}
		live, found, err := h.service.LiveQuote(ctx, userID)
		switch {
		case err != nil:
			log.Printf("live_quote_failed user_id=%d error=%q", userID, err.Error())
			frame.Type = "error"
		case !found:
			frame.Type = "idle"
		default:
			frame.Session = live
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ticker.C:
		}
	}
}
