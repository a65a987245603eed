package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"robotfleet/internal/admin"
	"robotfleet/internal/config"
	"robotfleet/internal/fleet"
	"robotfleet/internal/geocode"
	"robotfleet/internal/logging"
	"robotfleet/internal/metrics"
	"robotfleet/internal/render"
	"robotfleet/internal/source"
)

var (
	watchOutput    string
	watchAdminAddr string
	watchLogFile   string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the fleet and render the live dashboard",
	Long:  "watch polls the telemetry source, resolves robot locations and renders the merged fleet view until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, schemaPath)
		if err != nil {
			return err
		}
		if watchAdminAddr != "" {
			cfg.AdminAddr = watchAdminAddr
		}

		outputs, err := parseOutputs(watchOutput, term.IsTerminal(int(os.Stdout.Fd())))
		if err != nil {
			return err
		}

		logOut, closeLog, err := logWriter(watchLogFile, outputs)
		if err != nil {
			return err
		}
		defer closeLog()
		logger := logging.NewWithOptions(logOut, cfg.Log.Level, cfg.Log.Format)
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logger)

		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg); err != nil {
			return err
		}

		locator, closeLocator := newLocator(ctx, cfg.Geocode)
		defer closeLocator()

		resolver := fleet.NewResolver(locator, cfg.Geocode.Concurrency, cfg.Geocode.Timeout)
		pipeline := fleet.NewPipeline(ctx, source.NewClient(cfg.TelemetryURL), resolver, fleet.Options{
			PollInterval: cfg.PollInterval,
			MaxRobots:    cfg.MaxRobots,
		})

		renderer, closeRenderer, err := newRenderer(outputs)
		if err != nil {
			return err
		}
		unsubscribe := pipeline.Store.Subscribe(renderer)

		if cfg.AdminAddr != "" {
			srv := admin.NewServer(pipeline.Store, reg)
			go func() {
				if err := srv.Start(ctx, cfg.AdminAddr); err != nil {
					logger.Error("admin server failed", "err", err)
				}
			}()
			if tui, ok := renderer.(*render.TUIRenderer); ok {
				tui.SetAdminAddr(cfg.AdminAddr)
			}
		}

		logger.Info("watching fleet", "telemetry_url", cfg.TelemetryURL, "interval", cfg.PollInterval, "outputs", strings.Join(outputs, ","))
		pipeline.Run(ctx)
		pipeline.Wait()
		unsubscribe()
		return closeRenderer()
	},
}

// parseOutputs splits a comma separated --output value. An empty value picks
// tui on a terminal and json otherwise.
func parseOutputs(value string, tty bool) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		if tty {
			return []string{"tui"}, nil
		}
		return []string{"json"}, nil
	}
	var outputs []string
	for _, o := range strings.Split(value, ",") {
		o = strings.ToLower(strings.TrimSpace(o))
		switch o {
		case "tui", "color", "json":
			outputs = append(outputs, o)
		default:
			return nil, fmt.Errorf("unknown output %q (want tui, color or json)", o)
		}
	}
	return outputs, nil
}

// newRenderer builds the renderers named in outputs. The returned function
// releases terminal resources.
func newRenderer(outputs []string) (fleet.Renderer, func() error, error) {
	closeFn := func() error { return nil }
	var rs []fleet.Renderer
	for _, o := range outputs {
		switch o {
		case "tui":
			tui := render.NewTUIRenderer()
			closeFn = tui.Close
			rs = append(rs, tui)
		case "color":
			rs = append(rs, render.NewColorStdoutRenderer())
		case "json":
			rs = append(rs, render.NewJSONStdoutRenderer())
		default:
			return nil, nil, fmt.Errorf("unknown output %q", o)
		}
	}
	switch len(rs) {
	case 0:
		return nil, nil, fmt.Errorf("no output selected")
	case 1:
		return rs[0], closeFn, nil
	}
	return render.NewMultiRenderer(rs...), closeFn, nil
}

// logWriter picks the log destination. Logs go to path when set; the TUI
// owns the terminal, so without a path its logs are dropped.
func logWriter(path string, outputs []string) (io.Writer, func(), error) {
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}
	for _, o := range outputs {
		if o == "tui" {
			return io.Discard, func() {}, nil
		}
	}
	return os.Stderr, func() {}, nil
}

// newLocator builds the reverse geocoder with its cache. A Redis store is
// used when configured and reachable; otherwise results are cached in memory.
func newLocator(ctx context.Context, g config.Geocode) (geocode.Locator, func()) {
	client := geocode.NewClient(g.URL, g.UserAgent)
	if g.Cache.TTL <= 0 {
		return client, func() {}
	}
	if g.Cache.RedisAddr != "" {
		store, err := geocode.NewRedisStore(ctx, g.Cache.RedisAddr, os.Getenv("REDIS_PASSWORD"))
		if err == nil {
			return geocode.NewCache(client, store, g.Cache.TTL), func() { store.Close() }
		}
		logging.FromContext(ctx).Warn("redis cache unavailable, using memory cache", "addr", g.Cache.RedisAddr, "err", err)
	}
	return geocode.NewCache(client, geocode.NewMemoryStore(g.Cache.MaxEntries), g.Cache.TTL), func() {}
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Renderers: tui, color, json or a comma separated list (default tui on a terminal, json otherwise)")
	watchCmd.Flags().StringVar(&watchAdminAddr, "admin-addr", "", "Admin HTTP listen address (overrides admin_addr)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "Write logs to this file instead of STDERR")
}
