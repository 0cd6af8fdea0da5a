package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is the deployment's concern; identity comes from
	// the verified token, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection and streams the caller's
// notifications until either side disconnects. The session is registered
// under the verified caller id, so one participant's events never reach
// another's socket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	callerID := CallerID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	sess := s.hub.Subscribe(callerID)
	s.logger.Info("WebSocket connected", zap.String("user_id", callerID))

	done := make(chan struct{})

	// Read loop: we expect no client messages, but reading drives pong
	// handling and surfaces the close.
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.hub.Unsubscribe(sess)
		_ = conn.Close()
		s.logger.Info("WebSocket disconnected", zap.String("user_id", callerID))
	}()

	for {
		select {
		case n, ok := <-sess.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(n); err != nil {
				s.logger.Warn("WebSocket write failed",
					zap.String("user_id", callerID),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
