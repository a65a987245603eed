package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"robotfleet/internal/logging"
	"robotfleet/internal/source"
	"robotfleet/internal/telemetry"
)

var (
	serveData          string
	serveGenerate      int
	serveSeed          int64
	serveAddr          string
	serveDrainInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a mock telemetry source",
	Long:  "serve exposes GET /robots with a fixture or generated fleet whose online robots slowly drain their batteries.",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := newSourceServer(serveData, serveGenerate, serveSeed)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logging.NewWithOptions(os.Stderr, "info", "text"))
		return srv.Run(ctx, serveAddr, serveDrainInterval)
	},
}

// newSourceServer builds the mock source from a fixture file or, when path
// is empty, from n generated robots.
func newSourceServer(path string, n int, seed int64) (*source.Server, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := telemetry.NewGenerator(seed)
	if path == "" {
		return source.NewServer(gen, gen.Generate(n)), nil
	}
	robots, err := source.LoadFleet(path)
	if err != nil {
		return nil, err
	}
	return source.NewServer(gen, robots), nil
}

func init() {
	serveCmd.Flags().StringVar(&serveData, "data", "", "Path to a JSON fixture of robot records")
	serveCmd.Flags().IntVar(&serveGenerate, "generate", telemetry.MaxSnapshotSize, "Number of robots to generate when --data is empty")
	serveCmd.Flags().Int64Var(&serveSeed, "seed", 0, "Random seed for generated robots (0 = time based)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "Listen address")
	serveCmd.Flags().DurationVar(&serveDrainInterval, "drain-interval", 5*time.Second, "Battery drain interval")
}
