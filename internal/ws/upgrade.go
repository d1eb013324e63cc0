package ws

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"lipa/config"
	"lipa/internal/auth"
	"lipa/internal/models"
	"lipa/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// IntentReader is the read side of the intent service.
type IntentReader interface {
	GetIntent(id string) (*models.PaymentIntent, error)
}

// ServeIntent streams one intent: a snapshot first, then every update until
// the intent is terminal or the peer goes away. When JWT is configured the
// token comes from ?token= or the Authorization header.
func ServeIntent(cfg *config.JWTConfig, hub *IntentHub, intents IntentReader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AccessSecret != "" {
			token := c.Query("token")
			if token == "" {
				token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			}
			if token == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
				return
			}
			if _, err := auth.ParseAccessToken(cfg, token); err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		id := c.Param("id")
		client, err := hub.Subscribe(id, func() (*models.PaymentIntent, error) {
			return intents.GetIntent(id)
		})
		if errors.Is(err, repository.ErrIntentNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "payment intent not found"})
			return
		}
		if err != nil {
			logger.Error("subscribe to intent", zap.String("intent_id", id), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		defer client.Close()

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.String("intent_id", id), zap.Error(err))
			return
		}
		defer conn.Close()

		go readPump(conn, client)
		writePump(client, conn)
	}
}

// writePump copies messages from client.Send to the connection and sends a
// close frame once Send is closed.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames and closes the client when the peer leaves.
func readPump(conn *websocket.Conn, c *Client) {
	defer c.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
