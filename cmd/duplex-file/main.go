// ABOUTME: Offline renderer running a capture file through the engine into a WAV file
// ABOUTME: Drives the simulated bus period by period, or on a real-time clock
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/duplex-go/internal/apps"
	"github.com/Resonate-Protocol/duplex-go/pkg/audio"
	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
	_ "github.com/Resonate-Protocol/duplex-go/pkg/bus/opusfile"
	"github.com/Resonate-Protocol/duplex-go/pkg/control"
	"github.com/Resonate-Protocol/duplex-go/pkg/duplex"
)

var (
	input    = flag.String("in", "", "Capture file (wav, mp3, flac, ogg, opus)")
	output   = flag.String("out", "out.wav", "Output WAV file")
	appName  = flag.String("app", "passthrough", fmt.Sprintf("Processing app %v", apps.Names()))
	bitDepth = flag.Int("bits", 16, "Bus sample depth: 16 or 24")
	frames   = flag.Int("frames", duplex.DefaultFramesPerPeriod, "Frames per period")
	overflow = flag.String("overflow", "saturate", "Out-of-range policy: saturate or wrap")
	realtime = flag.Bool("realtime", false, "Run the bus on a real-time clock instead of as fast as possible")
)

func main() {
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: duplex-file -in <file> [-out out.wav]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	policy, err := audio.ParseOverflow(*overflow)
	if err != nil {
		log.Fatalf("Invalid overflow policy: %v", err)
	}

	capture, err := bus.OpenCapture(*input)
	if err != nil {
		log.Fatalf("Failed to open capture: %v", err)
	}
	defer capture.Close()

	channels := capture.Channels()
	if channels > 2 {
		channels = 2
	}
	format := audio.Format{SampleRate: capture.SampleRate(), Channels: channels, BitDepth: *bitDepth}

	render, err := bus.CreateWAVRender(*output, format)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}

	app, err := apps.New(*appName, format.SampleRate)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	var period time.Duration
	if *realtime {
		period = time.Duration(*frames) * time.Second / time.Duration(format.SampleRate)
	}
	// Periods still in the pipeline at end of file are flushed with silence
	sim := bus.NewSim(bus.SimConfig{
		Period:  period,
		Capture: bus.Tail(capture, duplex.PipelinePeriods),
		Render:  render,
	})

	engine, err := duplex.New(duplex.Config{
		Format:          format,
		FramesPerPeriod: *frames,
		Overflow:        policy,
		Transport:       sim,
		Processor:       control.NewHost(app, nil, nil),
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	log.Printf("Rendering %s -> %s (%dHz, %d channels, %d-bit, app %s)",
		*input, *output, format.SampleRate, format.Channels, format.BitDepth, *appName)
	start := time.Now()

	if *realtime {
		select {
		case <-sim.Done():
		case <-engine.Done():
		case <-ctx.Done():
		}
	} else if err := drive(ctx, sim, engine); err != nil {
		log.Printf("Render stopped: %v", err)
	}

	if err := engine.Stop(); err != nil {
		log.Printf("Error stopping engine: %v", err)
	}
	if err := render.Close(); err != nil {
		log.Fatalf("Failed to finalize output: %v", err)
	}

	s := engine.Stats()
	log.Printf("Wrote %d frames in %v (%d periods, %d dropouts)", render.Frames(), time.Since(start), s.Periods, s.Dropouts)

	if err := engine.Err(); err != nil {
		log.Fatalf("Engine error: %v", err)
	}
}

// drive ticks the bus whenever the processor has caught up, so no period
// is ever dropped
func drive(ctx context.Context, sim *bus.Sim, engine *duplex.Engine) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-engine.Done():
			return engine.Err()
		default:
		}

		if err := sim.Tick(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		for engine.Stats().Processed < sim.Periods() {
			select {
			case <-engine.Done():
				return engine.Err()
			default:
			}
			time.Sleep(50 * time.Microsecond)
		}
	}
}
