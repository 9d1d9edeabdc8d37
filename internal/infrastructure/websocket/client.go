package websocket

import (
	gorillaws "github.com/gorilla/websocket"

	"tradelink/pkg/logger"
)

// Conn is the subset of *websocket.Conn the transport uses. Tests substitute
// an in-memory implementation.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Client is one live connection. A user may hold several clients at once
// (multiple tabs/devices); room membership is per connection.
type Client struct {
	UserID string
	Conn   Conn
	Send   chan []byte

	// closed is owned by the Manager and guarded by its mutex. Once set the
	// Send channel is closed and the client can never rejoin a room, even if
	// its read loop is still delivering events.
	closed bool
}

func NewClient(userID string, conn Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
}

// WritePump drains the Send channel onto the connection until the channel
// closes or a write fails.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(gorillaws.TextMessage, message); err != nil {
			logger.Debug("websocket: write to %s failed: %v", c.UserID, err)
			return
		}
	}
	c.Conn.WriteMessage(gorillaws.CloseMessage, []byte{})
}
