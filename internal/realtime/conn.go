// Package realtime is the websocket transport: it upgrades HTTP requests,
// pumps frames in and out of each connection and hands decoded events to the
// registry.
//
// CONNECTION MODEL:
// Every connection gets a uuid session id and two goroutines. The read pump
// decodes one envelope at a time and dispatches it; the write pump drains a
// buffered send queue and keeps the connection alive with pings. Nothing
// outside this package writes to the socket directly.
//
// BACKPRESSURE:
// Deliver never blocks. A session that cannot keep up fills its queue and
// is dropped; it resynchronises by reconnecting and rejoining.
package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 10 << 20 // a room snapshot of pen strokes can be large
)

// Conn is one websocket session. It implements service.Sink.
type Conn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newConn(id string, ws *websocket.Conn, buffer int, logger *slog.Logger) *Conn {
	return &Conn{
		id:     id,
		ws:     ws,
		send:   make(chan []byte, buffer),
		closed: make(chan struct{}),
		logger: logger.With(slog.String("sessionId", id)),
	}
}

// ID is the session id assigned at upgrade.
func (c *Conn) ID() string { return c.id }

// Deliver queues a frame. A full queue closes the connection.
func (c *Conn) Deliver(frame []byte) {
	select {
	case <-c.closed:
		return
	default:
	}

	select {
	case c.send <- frame:
	default:
		c.logger.Warn("send buffer full, dropping connection", slog.Int("buffer", cap(c.send)))
		c.Close()
	}
}

// Close asks the write pump to send a close frame and shut the socket, which
// in turn ends the read pump. Safe to call more than once and from any
// goroutine.
func (c *Conn) Close() {
	c.once.Do(func() { close(c.closed) })
}

// readPump calls handle for each text frame until the socket fails.
func (c *Conn) readPump(handle func([]byte)) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		handle(data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
