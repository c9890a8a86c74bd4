package api

import (
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/raveportal/pageshare/internal/dom"
	"github.com/raveportal/pageshare/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// frame is a server-to-browser websocket message.
type frame struct {
	Type    string `json:"type"`
	HTML    string `json:"html,omitempty"`
	Version uint64 `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

// liveHandler streams a session's renders to the browser and feeds the
// browser's UI events back into the session.
type liveHandler struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
}

func newLiveHandler(sessions *session.Manager, allowedOrigins []string) *liveHandler {
	h := &liveHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
	}
	// No origins keeps the upgrader's same-origin check.
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		}
	}
	return h
}

// Serve handles GET /api/v1/sessions/{id}/ws.
func (h *liveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		slog.Warn("websocket upgrade failed", "session", s.ID, "error", err)
		return
	}
	defer conn.Close()

	logger := slog.With("session", s.ID, "request_id", RequestIDFromContext(r.Context()))
	logger.Info("live connection opened")

	updates, unsubscribe := s.Fragment().Subscribe()
	defer unsubscribe()

	var writeMu sync.Mutex
	write := func(f frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f)
	}
	render := func() error {
		html, version := s.Fragment().HTML()
		return write(frame{Type: "render", HTML: html, Version: version})
	}

	if err := render(); err != nil {
		logger.Warn("live connection write failed", "error", err)
		return
	}

	done := make(chan struct{})
	defer close(done)
	go h.pump(conn, s, updates, done, render, &writeMu, logger)

	conn.SetReadLimit(maxBodySize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var evt dom.Event
		if err := conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("live connection read failed", "error", err)
			}
			break
		}
		// Keep the session alive while the browser is active.
		if _, err := h.sessions.Get(s.ID); err != nil {
			_ = write(frame{Type: "error", Message: err.Error()})
			break
		}
		if err := s.HandleEvent(r.Context(), evt); err != nil {
			logger.Warn("ui event failed", "event", evt.Key(), "error", err)
			if err := write(frame{Type: "error", Message: err.Error()}); err != nil {
				break
			}
			continue
		}
		auditLog(r, "session.event", s.ID, "event", evt.Key())
	}
	logger.Info("live connection closed")
}

// pump forwards renders and keeps the connection alive until the reader
// exits or the session closes.
func (h *liveHandler) pump(conn *websocket.Conn, s *session.Session, updates <-chan string, done <-chan struct{}, render func() error, writeMu *sync.Mutex, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-updates:
			if err := render(); err != nil {
				logger.Warn("live connection write failed", "error", err)
				return
			}
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			writeMu.Unlock()
			if err != nil {
				return
			}
		case <-s.Done():
			writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
				time.Now().Add(writeWait))
			writeMu.Unlock()
			return
		}
	}
}
