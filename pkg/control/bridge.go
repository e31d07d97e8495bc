// ABOUTME: WebSocket bridge between remote controls and the message queues
// ABOUTME: Turns button frames into inbound messages and broadcasts LED changes
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Frame is the JSON envelope used on the control socket
type Frame struct {
	Type     string `json:"type"`
	Button   int    `json:"button,omitempty"`
	Pressed  bool   `json:"pressed,omitempty"`
	LED      int    `json:"led,omitempty"`
	On       bool   `json:"on,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Version  string `json:"version,omitempty"`
	LEDs     []bool `json:"leds,omitempty"`
}

// BridgeConfig holds bridge configuration
type BridgeConfig struct {
	Port         int
	Name         string
	Version      string
	DeviceID     string        // generated when empty
	PollInterval time.Duration // outbound queue polling, defaults to 10ms
}

// Bridge serves /control. It is the single producer of inbound and the
// single consumer of outbound.
type Bridge struct {
	config   BridgeConfig
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	inMu    sync.Mutex // serializes producers onto inbound
	inbound *Queue

	outbound *Queue

	clients   map[*bridgeClient]struct{}
	clientsMu sync.RWMutex

	ledMu sync.RWMutex
	leds  [NumLEDs]bool
}

type bridgeClient struct {
	conn     *websocket.Conn
	sendChan chan Frame
}

// NewBridge creates a bridge feeding inbound and draining outbound
func NewBridge(config BridgeConfig, inbound, outbound *Queue) *Bridge {
	if config.DeviceID == "" {
		config.DeviceID = uuid.New().String()
	}
	if config.PollInterval == 0 {
		config.PollInterval = 10 * time.Millisecond
	}

	b := &Bridge{
		config:   config,
		inbound:  inbound,
		outbound: outbound,
		mux:      http.NewServeMux(),
		clients:  make(map[*bridgeClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Control clients live on the local network
				origin := r.Header.Get("Origin")
				if origin != "" && origin != "http://localhost" && origin != "http://127.0.0.1" {
					log.Printf("Warning: accepting control connection from origin: %s", origin)
				}
				return true
			},
		},
	}
	b.mux.HandleFunc("/control", b.handleWebSocket)
	return b
}

// DeviceID returns the ID announced in hello frames
func (b *Bridge) DeviceID() string { return b.config.DeviceID }

// Handler returns the HTTP handler serving /control
func (b *Bridge) Handler() http.Handler { return b.mux }

// Press injects a button event as if a remote client sent it. It returns
// false if the inbound queue is full.
func (b *Bridge) Press(button int, pressed bool) (bool, error) {
	m, err := ButtonMessage(button, pressed)
	if err != nil {
		return false, err
	}
	b.inMu.Lock()
	defer b.inMu.Unlock()
	return b.inbound.Push(m), nil
}

// LEDs returns the last known LED state
func (b *Bridge) LEDs() [NumLEDs]bool {
	b.ledMu.RLock()
	defer b.ledMu.RUnlock()
	return b.leds
}

// ListenAndServe serves the control socket on the configured port until ctx is cancelled
func (b *Bridge) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", b.config.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: b.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	log.Printf("Control bridge listening on %s/control (device %s)", addr, b.config.DeviceID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go b.Run(runCtx)

	var serverErr error
	select {
	case <-ctx.Done():
	case err := <-errChan:
		serverErr = err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Control bridge shutdown error: %v", err)
	}
	b.closeClients()

	if serverErr != nil {
		return fmt.Errorf("control bridge failed: %w", serverErr)
	}
	return nil
}

// Run drains outbound messages and broadcasts them until ctx is cancelled
func (b *Bridge) Run(ctx context.Context) {
	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drainOutbound()
		}
	}
}

func (b *Bridge) drainOutbound() {
	for {
		m, ok := b.outbound.Pop()
		if !ok {
			return
		}
		led, on, ok := m.LED()
		if !ok {
			log.Printf("Ignoring outbound message %s", m)
			continue
		}

		b.ledMu.Lock()
		b.leds[led] = on
		b.ledMu.Unlock()

		b.broadcast(Frame{Type: "led", LED: led, On: on})
	}
}

func (b *Bridge) broadcast(f Frame) {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()

	for c := range b.clients {
		select {
		case c.sendChan <- f:
		default:
			log.Printf("Control client send queue full, dropping %s frame", f.Type)
		}
	}
}

func (b *Bridge) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Control upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("Control client connected from %s", r.RemoteAddr)

	leds := b.LEDs()
	client := &bridgeClient{conn: conn, sendChan: make(chan Frame, 32)}
	client.sendChan <- Frame{
		Type:     "hello",
		DeviceID: b.config.DeviceID,
		Name:     b.config.Name,
		Version:  b.config.Version,
		LEDs:     leds[:],
	}

	b.clientsMu.Lock()
	b.clients[client] = struct{}{}
	b.clientsMu.Unlock()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		b.clientWriter(client)
	}()

	defer func() {
		b.clientsMu.Lock()
		if _, ok := b.clients[client]; ok {
			delete(b.clients, client)
			close(client.sendChan)
		}
		b.clientsMu.Unlock()
		<-writerDone
		log.Printf("Control client %s disconnected", r.RemoteAddr)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Control socket error: %v", err)
			}
			return
		}
		b.handleFrame(data)
	}
}

func (b *Bridge) handleFrame(data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("Error unmarshaling control frame: %v", err)
		return
	}

	switch f.Type {
	case "button":
		ok, err := b.Press(f.Button, f.Pressed)
		if err != nil {
			log.Printf("Invalid button frame: %v", err)
		} else if !ok {
			log.Printf("Inbound control queue full, dropping button %d", f.Button)
		}
	default:
		log.Printf("Unknown control frame type: %s", f.Type)
	}
}

// clientWriter sends frames and keepalive pings to one client
func (b *Bridge) clientWriter(c *bridgeClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case f, ok := <-c.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(f)
			if err != nil {
				log.Printf("Error marshaling control frame: %v", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing control frame: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

func (b *Bridge) closeClients() {
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()

	for c := range b.clients {
		c.conn.Close()
	}
}
