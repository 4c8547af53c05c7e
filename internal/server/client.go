package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/broadside/server/internal/channel"
	"github.com/broadside/server/pkg/protocol"
)

const maxMessageSize = 64 << 10

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Client is one WebSocket connection with a single write goroutine.
type Client struct {
	id     string
	conn   *ws.Conn
	codec  protocol.Codec
	sendCh channel.Channel[[]byte]
	done   chan struct{} // closed on shutdown
	once   sync.Once

	writeWait    time.Duration
	pingInterval time.Duration

	mu       sync.RWMutex
	userID   string
	userName string

	logger *slog.Logger
}

func newClient(id string, conn *ws.Conn, codec protocol.Codec, sendBuffer int, writeWait, pingInterval time.Duration, logger *slog.Logger) *Client {
	return &Client{
		id:           id,
		conn:         conn,
		codec:        codec,
		sendCh:       channel.NewBuffered[[]byte](sendBuffer),
		done:         make(chan struct{}),
		writeWait:    writeWait,
		pingInterval: pingInterval,
		logger:       logger.With("client", id),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// UserID returns the registered user's id, or "" before registration.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// UserName returns the registered user's name.
func (c *Client) UserName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userName
}

// SetUser binds the connection to a user account.
func (c *Client) SetUser(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = id
	c.userName = name
}

// Send encodes a message and queues it for the write loop. It never blocks: a client
// whose buffer is full is too slow to keep up and gets disconnected.
func (c *Client) Send(msgType string, payload any) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	data, err := c.codec.Encode(msgType, payload)
	if err != nil {
		return err
	}
	if !c.sendCh.TrySend(data) {
		c.logger.Warn("send buffer full, disconnecting client", "type", msgType, "buffered", c.sendCh.Len())
		c.Close()
		return fmt.Errorf("%w: %s", ErrSendBufferFull, c.id)
	}
	return nil
}

func (c *Client) frameType() int {
	if c.codec.Binary() {
		return ws.BinaryMessage
	}
	return ws.TextMessage
}

// writeLoop drains the send queue and pings the peer.
// It returns on write error or shutdown.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.flush()
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			_ = c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
			return
		case data := <-c.sendCh.Receive():
			if err := c.write(c.frameType(), data); err != nil {
				c.logger.Debug("write error", "error", err)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(ws.PingMessage, nil); err != nil {
				c.logger.Debug("ping error", "error", err)
				c.Close()
				return
			}
		}
	}
}

// flush writes whatever is still queued, best effort.
func (c *Client) flush() {
	for c.sendCh.Len() > 0 {
		if err := c.write(c.frameType(), <-c.sendCh.Receive()); err != nil {
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// readLoop hands every frame to handle until the connection fails.
func (c *Client) readLoop(handle func(frame []byte)) error {
	pongWait := c.pingInterval * 2
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		handle(frame)
	}
}

// Close stops the write loop, which sends a close frame and closes the connection.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}
