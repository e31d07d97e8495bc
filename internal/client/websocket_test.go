// ABOUTME: Tests for the control client
// ABOUTME: Runs against a real control bridge over httptest
package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/duplex-go/pkg/control"
	"github.com/gorilla/websocket"
)

func TestNewClient(t *testing.T) {
	client := NewClient(Config{ServerAddr: "localhost:8928"})
	if client == nil {
		t.Fatal("expected client to be created")
	}
	if client.config.Path != "/control" {
		t.Errorf("expected default path /control, got %s", client.config.Path)
	}
	if client.IsConnected() {
		t.Error("expected client to start disconnected")
	}
	if err := client.Press(0, true); err == nil {
		t.Error("expected error pressing while disconnected")
	}
}

func startBridge(t *testing.T) (*control.Bridge, *control.Queue, *control.Queue, string) {
	t.Helper()
	in, err := control.NewQueue(8)
	if err != nil {
		t.Fatal(err)
	}
	out, err := control.NewQueue(8)
	if err != nil {
		t.Fatal(err)
	}
	bridge := control.NewBridge(control.BridgeConfig{Name: "test", DeviceID: "dev-1", PollInterval: time.Millisecond}, in, out)

	srv := httptest.NewServer(bridge.Handler())
	t.Cleanup(srv.Close)
	return bridge, in, out, strings.TrimPrefix(srv.URL, "http://")
}

func TestClientHandshakeAndPress(t *testing.T) {
	_, in, _, addr := startBridge(t)

	client := NewClient(Config{ServerAddr: addr})
	if err := client.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()

	if client.DeviceID() != "dev-1" {
		t.Errorf("expected device dev-1, got %q", client.DeviceID())
	}
	if len(client.LEDs()) != control.NumLEDs {
		t.Errorf("expected %d LEDs, got %d", control.NumLEDs, len(client.LEDs()))
	}

	if err := client.Press(3, true); err != nil {
		t.Fatalf("press failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m, ok := in.Pop(); ok {
			if m != control.Button3Down {
				t.Errorf("expected Button3Down, got %s", m)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("button press never reached the inbound queue")
}

func TestClientReceivesLEDs(t *testing.T) {
	bridge, _, out, addr := startBridge(t)

	client := NewClient(Config{ServerAddr: addr})
	if err := client.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()

	ctx, cancel := contextWithTimeout(t)
	defer cancel()
	go bridge.Run(ctx)

	out.Push(control.Led2On)

	select {
	case u := <-client.LEDUpdates:
		if u.LED != 2 || !u.On {
			t.Errorf("unexpected LED update: %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no LED update received")
	}
}

func TestClientDoneOnServerClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteJSON(control.Frame{Type: "hello", DeviceID: "dev-2"})
		conn.WriteJSON(control.Frame{Type: "led", LED: 1, On: true})
		conn.Close()
	}))
	defer srv.Close()

	client := NewClient(Config{ServerAddr: strings.TrimPrefix(srv.URL, "http://")})
	if err := client.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer client.Close()

	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done was not closed after the server went away")
	}
	if client.IsConnected() {
		t.Error("expected client to report disconnected")
	}

	select {
	case u := <-client.LEDUpdates:
		if u.LED != 1 || !u.On {
			t.Errorf("unexpected LED update: %+v", u)
		}
	default:
		t.Error("expected the LED update sent before the close to be buffered")
	}
}

func TestClientDoneOnClose(t *testing.T) {
	_, _, _, addr := startBridge(t)

	client := NewClient(Config{ServerAddr: addr})
	if err := client.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	select {
	case <-client.Done():
		t.Fatal("Done closed while connected")
	default:
	}

	client.Close()
	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("Done was not closed by Close")
	}
}

func TestClientConnectFails(t *testing.T) {
	client := NewClient(Config{ServerAddr: "127.0.0.1:1"})
	if err := client.Connect(); err == nil {
		client.Close()
		t.Fatal("expected dial error")
	}
}

func contextWithTimeout(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}
