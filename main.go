// ABOUTME: Entry point for the duplex audio engine host
// ABOUTME: Parses CLI flags, wires a bus, an app and the control bridge, then streams
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/duplex-go/internal/apps"
	"github.com/Resonate-Protocol/duplex-go/internal/discovery"
	"github.com/Resonate-Protocol/duplex-go/internal/ui"
	"github.com/Resonate-Protocol/duplex-go/internal/version"
	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
	"github.com/Resonate-Protocol/duplex-go/pkg/bus/device"
	_ "github.com/Resonate-Protocol/duplex-go/pkg/bus/opusfile"
	"github.com/Resonate-Protocol/duplex-go/pkg/control"
	"github.com/Resonate-Protocol/duplex-go/pkg/duplex"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	busName     = flag.String("bus", "sim", "Bus transport: sim, malgo or oto")
	sampleRate  = flag.Int("rate", duplex.DefaultSampleRate, "Sample rate in Hz")
	bitDepth    = flag.Int("bits", duplex.DefaultBitDepth, "Bus sample depth: 16 or 24")
	channels    = flag.Int("channels", duplex.DefaultChannels, "Bus channels: 1 or 2")
	frames      = flag.Int("frames", duplex.DefaultFramesPerPeriod, "Frames per period")
	layoutName  = flag.String("layout", "interleaved", "Channel layout: interleaved or mono")
	overflow    = flag.String("overflow", "saturate", "Out-of-range policy: saturate or wrap")
	appName     = flag.String("app", "oscillator", fmt.Sprintf("Processing app %v", apps.Names()))
	capturePath = flag.String("capture", "", "Capture file for the sim bus (wav, mp3, flac, ogg, opus); default is a test tone")
	renderPath  = flag.String("render", "", "WAV file receiving the sim bus output")
	controlPort = flag.Int("control-port", 8928, "Port for the control WebSocket (0 disables)")
	name        = flag.String("name", "", "Friendly name (default: hostname-duplex)")
	noMDNS      = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	discover    = flag.Bool("discover", false, "Browse for other engines and exit")
	duration    = flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	logFile     = flag.String("log-file", "duplex.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	engineName := *name
	if engineName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		engineName = fmt.Sprintf("%s-duplex", hostname)
	}

	if *discover {
		runDiscovery()
		return
	}

	layout, err := audio.ParseLayout(*layoutName)
	if err != nil {
		log.Fatalf("Invalid layout: %v", err)
	}
	policy, err := audio.ParseOverflow(*overflow)
	if err != nil {
		log.Fatalf("Invalid overflow policy: %v", err)
	}

	format := audio.Format{SampleRate: *sampleRate, Channels: *channels, BitDepth: *bitDepth}

	transport, simDone, closeTransport, err := newTransport(*busName, format)
	if err != nil {
		log.Fatalf("Failed to create bus: %v", err)
	}

	app, err := apps.New(*appName, *sampleRate)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	inbound, err := control.NewQueue(64)
	if err != nil {
		log.Fatalf("Failed to create queue: %v", err)
	}
	outbound, err := control.NewQueue(64)
	if err != nil {
		log.Fatalf("Failed to create queue: %v", err)
	}
	host := control.NewHost(app, inbound, outbound)

	engine, err := duplex.New(duplex.Config{
		Format:          format,
		FramesPerPeriod: *frames,
		Layout:          layout,
		Overflow:        policy,
		Transport:       transport,
		Processor:       host,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := control.NewBridge(control.BridgeConfig{
		Port:    *controlPort,
		Name:    engineName,
		Version: version.Version,
	}, inbound, outbound)

	if *controlPort > 0 {
		go func() {
			if err := bridge.ListenAndServe(ctx); err != nil {
				log.Printf("Control bridge error: %v", err)
			}
		}()

		if !*noMDNS {
			disc := discovery.NewManager(discovery.Config{
				ServiceName: engineName,
				Port:        *controlPort,
				DeviceID:    bridge.DeviceID(),
				Version:     version.Version,
			})
			if err := disc.Advertise(); err != nil {
				log.Printf("mDNS advertisement failed: %v", err)
			}
			defer disc.Stop()
		}
	} else {
		// LEDs still track the app without a socket
		go bridge.Run(ctx)
	}

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls

	if useTUI {
		controls = ui.NewControls()
		tuiProg, err = ui.Run(controls)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go tuiProg.Run()
	}

	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	if err := engine.Start(ctx); err != nil {
		if tuiProg != nil {
			tuiProg.Quit()
		}
		log.Fatalf("Failed to start engine: %v", err)
	}

	log.Printf("%s %s (%s): %s bus, app %s", version.Product, version.Version, version.Manufacturer, *busName, *appName)

	running := true
	updateTUI(ui.StatusMsg{
		Running:    &running,
		Status:     engineName,
		Bus:        *busName,
		App:        *appName,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
		Frames:     *frames,
		Period:     engine.PeriodDuration(),
	})

	if controls != nil {
		go handleButtons(ctx, bridge, controls)
	}
	go statsUpdateLoop(ctx, engine, bridge, updateTUI, tuiProg == nil)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var quit <-chan ui.QuitMsg
	if controls != nil {
		quit = controls.Quit
	}
	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}

	select {
	case <-quit:
		log.Printf("Received quit signal from TUI")
	case <-sigChan:
		log.Printf("Shutdown signal received")
	case <-simDone:
		log.Printf("Capture finished")
	case <-timeout:
		log.Printf("Run time of %v reached", *duration)
	case <-engine.Done():
	}

	if err := engine.Stop(); err != nil {
		log.Printf("Error stopping engine: %v", err)
	}
	closeTransport()
	cancel()

	if tuiProg != nil {
		tuiProg.Quit()
	}

	if err := engine.Err(); err != nil {
		log.Printf("Engine stopped with error: %v", err)
		os.Exit(1)
	}
	log.Printf("Engine stopped")
}

// newTransport builds the named bus. simDone is non-nil only for the sim
// bus and closes when its capture source runs out.
func newTransport(kind string, format audio.Format) (bus.Transport, <-chan struct{}, func(), error) {
	switch kind {
	case "sim":
		var closers []io.Closer
		closeAll := func() {
			for _, c := range closers {
				if err := c.Close(); err != nil {
					log.Printf("Warning: close failed: %v", err)
				}
			}
		}

		var capture bus.Capture = bus.NewTone(440, 0.5)
		if *capturePath != "" {
			fc, err := bus.OpenCapture(*capturePath)
			if err != nil {
				return nil, nil, nil, err
			}
			log.Printf("Capturing from %s (%dHz, %d channels)", *capturePath, fc.SampleRate(), fc.Channels())
			closers = append(closers, fc)
			capture = fc
		}

		var render bus.Render = bus.Discard{}
		if *renderPath != "" {
			wr, err := bus.CreateWAVRender(*renderPath, format)
			if err != nil {
				closeAll()
				return nil, nil, nil, err
			}
			closers = append(closers, wr)
			render = wr
		}

		period := time.Duration(*frames) * time.Second / time.Duration(format.SampleRate)
		sim := bus.NewSim(bus.SimConfig{Period: period, Capture: capture, Render: render})
		return sim, sim.Done(), closeAll, nil

	case "malgo":
		return device.NewMalgo(), nil, func() {}, nil

	case "oto":
		return device.NewOto(), nil, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown bus %q", kind)
	}
}

// handleButtons turns TUI key presses into a press and release
func handleButtons(ctx context.Context, bridge *control.Bridge, controls *ui.Controls) {
	for {
		select {
		case p := <-controls.Presses:
			for _, pressed := range []bool{true, false} {
				ok, err := bridge.Press(p.Button, pressed)
				if err != nil {
					log.Printf("Invalid button: %v", err)
					break
				}
				if !ok {
					log.Printf("Inbound queue full, dropping button %d", p.Button)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically publishes engine statistics
func statsUpdateLoop(ctx context.Context, engine *duplex.Engine, bridge *control.Bridge, updateTUI func(ui.StatusMsg), logStats bool) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	// Streaming logs get a slower summary
	logTicker := time.NewTicker(5 * time.Second)
	defer logTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-engine.Done():
			stopped := false
			updateTUI(ui.StatusMsg{Running: &stopped})
			return

		case <-ticker.C:
			stats := engine.Stats()
			leds := bridge.LEDs()
			updateTUI(ui.StatusMsg{Stats: &stats, LEDs: &leds})

		case <-logTicker.C:
			if logStats {
				s := engine.Stats()
				log.Printf("Periods: %d, processed: %d, dropouts: %d, max wake: %v, max process: %v",
					s.Periods, s.Processed, s.Dropouts, s.MaxWake, s.MaxProcess)
			}
		}
	}
}

// runDiscovery lists engines found on the network for a few seconds
func runDiscovery() {
	disc := discovery.NewManager(discovery.Config{})
	defer disc.Stop()

	if err := disc.Browse(); err != nil {
		log.Fatalf("Browse failed: %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		select {
		case d := <-disc.Devices():
			fmt.Printf("%s\tws://%s:%d%s\t%s\n", d.Name, d.Host, d.Port, d.Path, d.DeviceID)
		case <-deadline:
			return
		}
	}
}
