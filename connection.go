package nostr

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Connection is a single websocket connection to a relay. Writes are
// serialized; reads happen from exactly one goroutine (the relay's message
// loop).
type Connection struct {
	socket *websocket.Conn
	mutex  sync.Mutex
}

// NewConnection dials the relay and performs the websocket handshake.
func NewConnection(ctx context.Context, url string, requestHeader http.Header) (*Connection, error) {
	socket, _, err := websocket.DefaultDialer.DialContext(ctx, url, requestHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	return &Connection{socket: socket}, nil
}

func (c *Connection) WriteJSON(v any) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.socket.WriteJSON(v); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

func (c *Connection) WriteMessage(data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ReadMessage blocks until the next text message arrives. Control frames
// are handled by the underlying library.
func (c *Connection) ReadMessage() ([]byte, error) {
	for {
		typ, message, err := c.socket.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		if typ == websocket.TextMessage {
			return message, nil
		}
	}
}

func (c *Connection) Close() error {
	return c.socket.Close()
}
