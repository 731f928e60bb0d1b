package realtime

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config controls the websocket endpoint.
type Config struct {
	// AllowedOrigins lists browser origins allowed to connect. Empty allows
	// any origin. Requests without an Origin header (non-browser clients)
	// are always allowed.
	AllowedOrigins []string
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
}

// Handler upgrades requests to websocket sessions.
type Handler struct {
	rooms      Rooms
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
	config     Config
	logger     *slog.Logger
}

func NewHandler(rooms Rooms, cfg Config, logger *slog.Logger) *Handler {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	h := &Handler{
		rooms:      rooms,
		dispatcher: NewDispatcher(rooms, logger),
		config:     cfg,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP runs one session until the client goes away. The session's
// disconnect is reported to the registry as an implicit leave.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := newConn(uuid.NewString(), ws, h.config.SendBuffer, h.logger)
	h.rooms.Connect(conn.ID(), conn)
	conn.logger.Info("user connected", slog.String("remote", r.RemoteAddr))

	go conn.writePump()
	conn.readPump(func(frame []byte) { h.dispatcher.Handle(conn, frame) })

	h.rooms.Disconnect(conn.ID())
	conn.Close()
	conn.logger.Info("user disconnected")
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 {
		return true
	}
	if slices.Contains(h.config.AllowedOrigins, "*") || slices.Contains(h.config.AllowedOrigins, origin) {
		return true
	}
	// same-origin pages are always fine
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}
