package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dotside-studios/nfc-bridge/protocol"
)

// Client is the connected UI client.
type Client struct {
	conn         *websocket.Conn
	sessionID    string
	writeTimeout time.Duration
	logger       zerolog.Logger

	mu     sync.Mutex // one writer at a time
	closed bool
}

func newClient(conn *websocket.Conn, sessionID string, writeTimeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		conn:         conn,
		sessionID:    sessionID,
		writeTimeout: writeTimeout,
		logger:       logger.With().Str("session", sessionID).Logger(),
	}
}

// SessionID returns the id assigned when the client connected.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Send writes v as a JSON text frame.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return websocket.ErrCloseSent
	}
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteJSON(v); err != nil {
		c.logger.Warn().Err(err).Msg("websocket write failed")
		return err
	}
	return nil
}

// SendError sends a structured error response.
func (c *Client) SendError(requestID, code, message string) error {
	return c.Send(protocol.Response{
		ID:      requestID,
		Type:    protocol.TypeError,
		Success: false,
		Error:   message,
		Payload: protocol.ErrorPayload{Code: code},
	})
}

// Close closes the connection. Later sends fail.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
