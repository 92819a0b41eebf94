package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
)

// Client is a single websocket connection. A user may hold several.
type Client struct {
	id        uuid.UUID
	userID    uuid.UUID
	conn      *websocket.Conn
	createdAt time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	log *slog.Logger
}

func NewClient(conn *websocket.Conn, userID uuid.UUID, sendBuffer int, log *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		id:        id,
		userID:    userID,
		conn:      conn,
		createdAt: time.Now(),
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		log: log.With(
			slog.String("conn_id", id.String()),
			slog.String("user_id", userID.String())),
	}
}

func (c *Client) ID() uuid.UUID        { return c.id }
func (c *Client) UserID() uuid.UUID    { return c.userID }
func (c *Client) CreatedAt() time.Time { return c.createdAt }

// Send queues a frame. It never blocks: a closed client or a full buffer
// drops the frame.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.log.Debug("send buffer full, dropping frame")
		return false
	}
}

// Close stops the write pump. The send channel is never closed so late
// senders cannot panic.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ReadPump reads frames until the connection fails or ctx ends.
func (c *Client) ReadPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)

	for {
		var event Event
		err := wsjson.Read(ctx, c.conn, &event)
		if err != nil {
			// wsjson closes the socket itself on a malformed frame.
			if websocket.CloseStatus(err) != -1 {
				c.log.Debug("client disconnected")
			} else {
				c.log.Debug("read error", slog.Any("error", err))
			}
			return
		}

		c.handleEvent(&event)
	}
}

// WritePump drains the send queue to the socket and keeps the connection
// alive with pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.log.Debug("write error", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.log.Debug("ping error", slog.Any("error", err))
				return
			}

		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handleEvent(event *Event) {
	switch event.Type {
	case EventTypePing:
		c.sendEvent(EventTypePong, nil)

	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(EventTypeError, ErrorPayload{Code: code, Message: message})
}

func (c *Client) sendEvent(eventType string, payload any) {
	frame, err := encodeEvent(eventType, payload)
	if err != nil {
		c.log.Error("encoding frame", slog.String("type", eventType), slog.Any("error", err))
		return
	}
	c.Send(frame)
}
