// Package client is a Go participant for the whiteboard websocket API. Bots,
// load tests and the end-to-end tests use it; it pairs with canvas.Document,
// which it can act as the Emitter for.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sakif/whiteboard/internal/protocol"
)

// ErrClosed is returned by Send and Join once the connection is gone.
var ErrClosed = errors.New("client: connection closed")

// ServerError is an "error" event sent back by the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string { return "server: " + e.Message }

const writeWait = 10 * time.Second

// joinWaiter collects the answer to one Join. Frames are ignored until the
// pong carrying nonce arrives; anything before it answers an earlier send.
type joinWaiter struct {
	nonce  string
	synced bool
	ch     chan protocol.Envelope
}

// Client is one websocket session.
type Client struct {
	ws     *websocket.Conn
	logger *slog.Logger
	events chan protocol.Envelope

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu     sync.Mutex
	waiter *joinWaiter // set while Join waits

	done      chan struct{}
	closeOnce sync.Once
	readDone  chan struct{}
}

// Dial connects to a whiteboard server's websocket endpoint, e.g.
// ws://localhost:5000/ws. header may carry an Origin.
func Dial(ctx context.Context, url string, header http.Header, logger *slog.Logger) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	c := &Client{
		ws:       ws,
		logger:   logger,
		events:   make(chan protocol.Envelope, 256),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events yields every frame the server sends, in order. The channel closes
// when the connection ends. Callers must keep draining it; a full channel
// stalls the reader.
func (c *Client) Events() <-chan protocol.Envelope {
	return c.events
}

// Send writes one event.
func (c *Client) Send(event string, payload any) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("sending %s: %w", event, err)
	}
	return nil
}

// Emit makes Client a canvas.Emitter.
func (c *Client) Emit(event string, payload any) error {
	return c.Send(event, payload)
}

// Join asks to enter a room and waits for the server's answer. The
// room-joined frame is also delivered on Events, so a canvas.Document fed
// from Events picks up the room's shapes.
//
// Join sends a ping with a fresh nonce ahead of join-room. The server
// answers frames in order, so an error event that arrives before the
// matching pong belongs to an earlier send and is not taken as the answer.
func (c *Client) Join(ctx context.Context, roomID, username string) (*protocol.RoomJoined, error) {
	w := &joinWaiter{nonce: uuid.NewString(), ch: make(chan protocol.Envelope, 1)}
	c.mu.Lock()
	c.waiter = w
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.waiter = nil
		c.mu.Unlock()
	}()

	if err := c.Send(protocol.EventPing, protocol.Ping{Nonce: w.nonce}); err != nil {
		return nil, err
	}
	if err := c.Send(protocol.EventJoinRoom, protocol.JoinRoomRequest{RoomID: roomID, Username: username}); err != nil {
		return nil, err
	}

	select {
	case env := <-w.ch:
		if env.Event == protocol.EventError {
			var msg protocol.ErrorMessage
			if err := env.Decode(&msg); err != nil {
				return nil, fmt.Errorf("decoding join error: %w", err)
			}
			return nil, &ServerError{Message: msg.Message}
		}
		var joined protocol.RoomJoined
		if err := env.Decode(&joined); err != nil {
			return nil, fmt.Errorf("decoding room-joined: %w", err)
		}
		return &joined, nil
	case <-c.readDone:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close sends a close frame and tears the connection down. It waits for the
// reader to exit.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	<-c.readDone
	return err
}

func (c *Client) readLoop() {
	defer close(c.readDone)
	defer close(c.events)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.closing() {
				c.logger.Warn("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("dropping malformed frame", slog.String("error", err.Error()))
			continue
		}

		c.offer(env)

		select {
		case c.events <- env:
		case <-c.done:
			return
		}
	}
}

// offer hands env to a waiting Join if it is the answer Join is after.
func (c *Client) offer(env protocol.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.waiter
	if w == nil {
		return
	}

	switch env.Event {
	case protocol.EventPong:
		var ping protocol.Ping
		if err := env.Decode(&ping); err == nil && ping.Nonce == w.nonce {
			w.synced = true
		}
	case protocol.EventRoomJoined, protocol.EventError:
		if !w.synced {
			return
		}
		select {
		case w.ch <- env:
		default:
		}
	}
}

func (c *Client) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
