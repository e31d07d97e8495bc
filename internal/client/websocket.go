// ABOUTME: WebSocket client for a remote engine's control socket
// ABOUTME: Handles connection, hello, button frames and LED updates
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/Resonate-Protocol/duplex-go/pkg/control"
	"github.com/gorilla/websocket"
)

// Config holds client configuration
type Config struct {
	ServerAddr string // host:port
	Path       string // defaults to /control
}

// LEDUpdate is an LED change reported by the engine
type LEDUpdate struct {
	LED int
	On  bool
}

// Client is a control connection to one engine
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex

	// LEDUpdates receives LED changes after the hello
	LEDUpdates chan LEDUpdate

	hello control.Frame

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new control client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = "/control"
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:     config,
		LEDUpdates: make(chan LEDUpdate, 32),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Connect dials the engine and waits for its hello
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake reads the engine's hello
func (c *Client) handshake() error {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{}) // Clear deadline

	var hello control.Frame
	if err := json.Unmarshal(data, &hello); err != nil {
		return fmt.Errorf("failed to parse hello: %w", err)
	}
	if hello.Type != "hello" {
		return fmt.Errorf("expected hello, got %s", hello.Type)
	}

	c.mu.Lock()
	c.hello = hello
	c.mu.Unlock()

	log.Printf("Connected to %s (device %s, version %s)", hello.Name, hello.DeviceID, hello.Version)
	return nil
}

// DeviceID returns the engine's device ID from its hello
func (c *Client) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello.DeviceID
}

// LEDs returns the LED state reported in the hello
func (c *Client) LEDs() []bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]bool(nil), c.hello.LEDs...)
}

// Press sends a button press or release
func (c *Client) Press(button int, pressed bool) error {
	return c.sendJSON(control.Frame{Type: "button", Button: button, Pressed: pressed})
}

// sendJSON sends a JSON frame
func (c *Client) sendJSON(f control.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(f)
}

// readMessages reads and routes incoming frames
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Read error: %v", err)
			}
			return
		}
		c.handleJSONMessage(data)
	}
}

// handleJSONMessage routes JSON frames
func (c *Client) handleJSONMessage(data []byte) {
	var f control.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch f.Type {
	case "led":
		select {
		case c.LEDUpdates <- LEDUpdate{LED: f.LED, On: f.On}:
		case <-c.ctx.Done():
		}

	default:
		log.Printf("Unknown message type: %s", f.Type)
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// Done is closed once the connection ends, whether by Close or by the
// engine going away. No LED updates arrive after it closes.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
