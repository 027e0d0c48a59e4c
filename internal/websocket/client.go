package websocket

import (
	"context"
	"errors"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one open page of a device. Messages queued on send are written
// as JSON text frames in order.
type Client struct {
	hub      *Hub
	conn     *ws.Conn
	deviceID string
	send     chan Message
}

// NewClient creates a Client for one device's connection.
func NewClient(hub *Hub, conn *ws.Conn, deviceID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		deviceID: deviceID,
		send:     make(chan Message, sendBufferSize),
	}
}

// Run registers the client and serves it until the page goes away or ctx
// ends. The connection is closed before Run returns.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- c.writePump(ctx)
		cancel()
	}()

	err := c.readPump(ctx)
	cancel()
	// A failed write cancels the read, so its error is the real cause.
	if werr := <-writeErr; werr != nil && !errors.Is(werr, context.Canceled) && errors.Is(err, context.Canceled) {
		err = werr
	}

	switch status := ws.CloseStatus(err); {
	case status == ws.StatusNormalClosure || status == ws.StatusGoingAway:
		c.hub.logger.Debug("page closed connection", "device", c.deviceID)
	case errors.Is(err, context.Canceled):
		c.conn.Close(ws.StatusGoingAway, "server shutting down")
	default:
		c.hub.logger.Debug("connection lost", "device", c.deviceID, "error", err)
		c.conn.CloseNow()
	}
}

// readPump waits for the page to close. Pages only listen on this socket, so
// any frame they send is ignored.
func (c *Client) readPump(ctx context.Context) error {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return err
		}
	}
}

// writePump writes queued messages and pings the page so a dead connection
// is noticed while nothing is being sent.
func (c *Client) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return nil
			}
			if err := c.write(ctx, msg); err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) write(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}
