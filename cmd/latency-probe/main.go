// ABOUTME: Probe measuring wake latency and dropouts at several period sizes
// ABOUTME: Runs a clocked simulated bus with a processor burning a fixed share of each period
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/Resonate-Protocol/duplex-go/pkg/bus"
	"github.com/Resonate-Protocol/duplex-go/pkg/duplex"
)

var (
	sizes   = flag.String("frames", "32,64,128,256,512", "Comma-separated period sizes to probe")
	load    = flag.Float64("load", 0.5, "Share of each period the processor spends busy (0-2)")
	runTime = flag.Duration("time", 2*time.Second, "How long to run each period size")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	frameSizes, err := parseSizes(*sizes)
	if err != nil {
		log.Fatalf("Invalid -frames: %v", err)
	}

	fmt.Println("=== Duplex Latency Probe ===")
	fmt.Printf("Processor load: %.0f%% of each period, %v per size\n\n", *load*100, *runTime)
	fmt.Printf("%8s %10s %10s %10s %10s %10s %9s\n", "frames", "period", "periods", "dropouts", "max wake", "max proc", "drop %")

	for _, frames := range frameSizes {
		s, period, err := probe(frames, *load, *runTime)
		if err != nil {
			log.Fatalf("Probe at %d frames failed: %v", frames, err)
		}
		dropPct := 0.0
		if s.Periods > 0 {
			dropPct = 100 * float64(s.Dropouts) / float64(s.Periods)
		}
		fmt.Printf("%8d %10v %10d %10d %10v %10v %8.1f%%\n",
			frames, period.Round(time.Microsecond), s.Periods, s.Dropouts,
			s.MaxWake.Round(time.Microsecond), s.MaxProcess.Round(time.Microsecond), dropPct)
	}
}

func probe(frames int, load float64, d time.Duration) (duplex.Stats, time.Duration, error) {
	period := time.Duration(frames) * time.Second / duplex.DefaultSampleRate
	busy := time.Duration(load * float64(period))

	sim := bus.NewSim(bus.SimConfig{Period: period, Capture: bus.NewTone(1000, 0.5)})
	engine, err := duplex.New(duplex.Config{
		FramesPerPeriod: frames,
		Transport:       sim,
		Processor: duplex.ProcessorFuncs{
			ProcessFunc: func(_, _ int, out, in []float32) {
				copy(out, in)
				spin(busy)
			},
		},
	})
	if err != nil {
		return duplex.Stats{}, 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		return duplex.Stats{}, 0, err
	}
	if err := engine.Wait(); err != nil {
		return duplex.Stats{}, 0, err
	}
	return engine.Stats(), period, nil
}

// spin busy-waits, so the probe measures scheduling rather than sleep granularity
func spin(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

func parseSizes(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("period size %d must be positive", n)
		}
		out = append(out, n)
	}
	return out, nil
}
