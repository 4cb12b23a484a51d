package terminal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antibyte/kscr/pkg/logger"
	"github.com/antibyte/kscr/pkg/shared"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// Client is one WebSocket connection.
type Client struct {
	server    *Server
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

func newClient(s *Server, conn *websocket.Conn, sessionID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		server:    s,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// writeMessage queues msg for the write pump. Messages for a closed client
// are dropped.
func (c *Client) writeMessage(msg shared.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.ServerError("Failed to encode message for session %s: %v", c.sessionID, err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
		c.conn.Close()
	})
}

// readPump reads messages until the connection fails, replying to each in order.
func (c *Client) readPump() {
	defer func() {
		c.server.clients.RemoveClient(c.sessionID)
		c.close()
		logger.ServerInfo("Client disconnected: session %s", c.sessionID)
	}()

	c.conn.SetReadLimit(int64(c.server.validator.MaxBytes))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				logger.ServerWarn("Unexpected close for session %s: %v", c.sessionID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		msg, err := c.server.validator.Decode(data)
		if err != nil {
			logger.SecurityInfo("Rejected message from session %s: %v", c.sessionID, err)
			c.writeMessage(errorReply(err))
			continue
		}
		logger.ServerDebug("Message type %d from session %s", msg.Type, c.sessionID)
		c.writeMessage(c.server.handleMessage(c.ctx, msg))
	}
}

// writePump sends queued messages, one per frame, and pings the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.ServerDebug("Write failed for session %s: %v", c.sessionID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
