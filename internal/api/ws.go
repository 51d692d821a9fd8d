package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/search"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The progress stream is read-only and carries no credentials, so any
	// origin may subscribe.
	CheckOrigin: func(*http.Request) bool { return true },
}

// streamProgress handles GET /ws/{search_id}: it upgrades the connection and
// forwards the job's progress events as JSON frames until the terminal event,
// then closes. A late subscriber first receives the latest retained event.
// Unknown ids get a single error frame before the close.
func (s *Server) streamProgress(w http.ResponseWriter, r *http.Request) {
	searchID := chi.URLParam(r, "search_id")
	logger := s.logger.With(zap.String("search_id", searchID))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if _, err := s.store.Get(r.Context(), searchID); err != nil {
		if !errors.Is(err, search.ErrNotFound) {
			logger.Error("job lookup failed", zap.Error(err))
		}
		s.writeFrame(conn, map[string]string{
			"status":  "error",
			"message": "search not found",
		})
		s.closeConn(conn, websocket.ClosePolicyViolation, "unknown search id")
		return
	}

	events, unsubscribe := s.broker.Subscribe(searchID)
	defer unsubscribe()

	// Reader goroutine: clients never send data frames; this exists to
	// notice closes and keep pong handling alive.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(wsPingPeriod)
	defer pings.Stop()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				// Terminal event already delivered; say goodbye.
				s.closeConn(conn, websocket.CloseNormalClosure, "search finished")
				return
			}
			if !s.writeFrame(conn, evt) {
				return
			}
		case <-pings.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			logger.Debug("websocket client went away")
			return
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, payload any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(payload); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}

func (s *Server) closeConn(conn *websocket.Conn, code int, reason string) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason))
}
