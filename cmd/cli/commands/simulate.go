package commands

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

type SimulateOptions struct {
	DeviceID string
	Keys     string
	Interval time.Duration
	Count    int
	Base     float64
	Spread   float64
}

func NewSimulateCmd() *cobra.Command {
	opts := &SimulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Push synthetic telemetry to the server",
		Long: `Push synthetic telemetry for a device at a fixed interval. Values
follow a slow sine wave around the base with random noise, which gives
charts something realistic to draw.`,
		Example: `  # Push temperature and humidity every 2 seconds until interrupted
  dashctl simulate --device demo-device --keys temperature,humidity --interval 2s

  # Push exactly 100 samples
  dashctl simulate --device demo-device --keys temperature --count 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.DeviceID, "device", "", "target device id (required)")
	cmd.Flags().StringVar(&opts.Keys, "keys", "temperature", "comma-separated telemetry keys")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 2*time.Second, "delay between samples")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "number of samples to send (0 runs until interrupted)")
	cmd.Flags().Float64Var(&opts.Base, "base", 20, "base value")
	cmd.Flags().Float64Var(&opts.Spread, "spread", 5, "sine amplitude and noise spread")
	cmd.MarkFlagRequired("device")

	return cmd
}

func runSimulate(ctx context.Context, opts *SimulateOptions) error {
	keys := strings.Split(opts.Keys, ",")
	for i := range keys {
		keys[i] = strings.TrimSpace(keys[i])
	}

	client := newAPIClient()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	sent := 0
	start := time.Now()
	for {
		sample := make(map[string]interface{}, len(keys))
		phase := time.Since(start).Seconds() / 60
		for i, key := range keys {
			// Offset each key's wave so they do not move in lockstep.
			wave := math.Sin(2*math.Pi*phase + float64(i))
			noise := (rng.Float64() - 0.5) * opts.Spread / 2
			sample[key] = math.Round((opts.Base+wave*opts.Spread+noise)*100) / 100
		}

		path := "/api/v1/devices/" + opts.DeviceID + "/timeseries"
		if err := client.do(ctx, "POST", path, sample, nil); err != nil {
			return err
		}
		sent++
		if opts.Count > 0 && sent >= opts.Count {
			fmt.Printf("Sent %d samples to %s\n", sent, opts.DeviceID)
			return nil
		}

		select {
		case <-ctx.Done():
			fmt.Printf("\nSent %d samples to %s\n", sent, opts.DeviceID)
			return nil
		case <-ticker.C:
		}
	}
}
