// ABOUTME: Command-line remote for an engine's buttons and LEDs
// ABOUTME: Finds an engine via mDNS or address, presses buttons and prints LED changes
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/duplex-go/internal/client"
	"github.com/Resonate-Protocol/duplex-go/internal/discovery"
)

var (
	serverAddr = flag.String("server", "", "Engine control address host:port (skip mDNS)")
	press      = flag.String("press", "", "Comma-separated buttons to press and release, e.g. 0,1")
	watch      = flag.Duration("watch", 0, "Keep printing LED changes for this long (0 exits after pressing, -1 forever)")
)

func main() {
	flag.Parse()

	buttons, err := parseButtons(*press)
	if err != nil {
		log.Fatalf("Invalid -press: %v", err)
	}

	addr := *serverAddr
	path := ""
	if addr == "" {
		log.Printf("Browsing for engines...")
		disc := discovery.NewManager(discovery.Config{})
		disc.Browse()

		select {
		case d := <-disc.Devices():
			addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
			path = d.Path
			log.Printf("Discovered engine %s at %s", d.Name, addr)
		case <-time.After(10 * time.Second):
			log.Fatalf("No engine found after 10 seconds")
		}
		disc.Stop()
	}

	c := client.NewClient(client.Config{ServerAddr: addr, Path: path})
	if err := c.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer c.Close()

	fmt.Printf("LEDs: %s\n", formatLEDs(c.LEDs()))

	for _, b := range buttons {
		if err := c.Press(b, true); err != nil {
			log.Fatalf("Press failed: %v", err)
		}
		if err := c.Press(b, false); err != nil {
			log.Fatalf("Release failed: %v", err)
		}
		fmt.Printf("Pressed button %d\n", b)
	}

	if *watch == 0 {
		// Give LED responses a moment to arrive
		*watch = 250 * time.Millisecond
	}

	var timeout <-chan time.Time
	if *watch > 0 {
		timeout = time.After(*watch)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case u := <-c.LEDUpdates:
			printLED(u)
		case <-c.Done():
			// Updates already buffered still count
			for {
				select {
				case u := <-c.LEDUpdates:
					printLED(u)
				default:
					fmt.Println("Connection closed by engine")
					return
				}
			}
		case <-timeout:
			return
		case <-sigChan:
			return
		}
	}
}

func printLED(u client.LEDUpdate) {
	state := "off"
	if u.On {
		state = "on"
	}
	fmt.Printf("LED %d %s\n", u.LED, state)
}

func parseButtons(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func formatLEDs(leds []bool) string {
	var b strings.Builder
	for i, on := range leds {
		if i > 0 {
			b.WriteByte(' ')
		}
		icon := "○"
		if on {
			icon = "●"
		}
		fmt.Fprintf(&b, "%d:%s", i, icon)
	}
	return b.String()
}
