// Package client is a minimal relay client speaking the same frames as a browser.
package client

import (
	"chat-relay/domain/event"
	"chat-relay/transport/ws"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

type Client struct {
	conn    *websocket.Conn
	frames  chan ws.Frame
	writeMu sync.Mutex

	mu      sync.Mutex
	readErr error
}

// Dial opens a relay connection, url is the full ws:// address of the relay endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	c := &Client{conn: conn, frames: make(chan ws.Frame, 128)}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.frames)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}
		var frame ws.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		c.frames <- frame
	}
}

func (c *Client) SetNickname(name string) error {
	return c.send(ws.SetNicknameEvent, name)
}

func (c *Client) ReconnectNickname(name string) error {
	return c.send(ws.ReconnectNicknameEvent, name)
}

func (c *Client) SendMessage(message, timestamp string) error {
	return c.send(ws.ChatMessageEvent, ws.ChatPayload{Message: message, Timestamp: timestamp})
}

// SendRaw writes an arbitrary text message, used to exercise malformed input.
func (c *Client) SendRaw(raw []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *Client) send(name string, data any) error {
	raw, err := ws.EncodeFrame(name, data)
	if err != nil {
		return err
	}
	return c.SendRaw(raw)
}

// Next returns the next frame received, in arrival order.
func (c *Client) Next(ctx context.Context) (ws.Frame, error) {
	select {
	case frame, ok := <-c.frames:
		if !ok {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.readErr != nil {
				return ws.Frame{}, c.readErr
			}
			return ws.Frame{}, io.EOF
		}
		return frame, nil
	case <-ctx.Done():
		return ws.Frame{}, ctx.Err()
	}
}

// Expect reads the next frame, checks its event name and decodes its data into v.
func (c *Client) Expect(ctx context.Context, name event.Name, v any) error {
	frame, err := c.Next(ctx)
	if err != nil {
		return err
	}
	if frame.Event != string(name) {
		return fmt.Errorf("expected %q, got %q (%s)", name, frame.Event, frame.Data)
	}
	if v == nil {
		return nil
	}
	return frame.DecodeData(v)
}

// ExpectNothing fails when a frame arrives within wait.
func (c *Client) ExpectNothing(ctx context.Context, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	frame, err := c.Next(ctx)
	if err == nil {
		return fmt.Errorf("unexpected %q (%s)", frame.Event, frame.Data)
	}
	if err == context.DeadlineExceeded {
		return nil
	}
	return err
}

// Close performs a clean WebSocket close.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// Drop closes the network connection without a close handshake, like a lost network.
func (c *Client) Drop() error {
	return c.conn.Close()
}
