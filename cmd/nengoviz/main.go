package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/cchan987/nengo-viz/config"
	"github.com/cchan987/nengo-viz/metric"
	"github.com/cchan987/nengo-viz/model"
	"github.com/cchan987/nengo-viz/server"
	"github.com/cchan987/nengo-viz/viz"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nengoviz: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("nengoviz version %s\n", Version)
		return nil
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting nengoviz",
		"version", Version,
		"port", cfg.Server.Port,
		"dt", cfg.Simulation.DT)

	metrics := metric.NewRegistry()

	m := demoModel()
	org, err := viz.New(m,
		viz.WithDT(cfg.Simulation.DT),
		viz.WithQuantum(cfg.Simulation.Quantum),
		viz.WithLogger(logger),
		viz.WithMetrics(metrics),
		// Pace the run loop at roughly real time so an idle browser
		// tab does not pin a core.
		viz.WithPace(rate.Limit(1/cfg.Simulation.Quantum)),
	)
	if err != nil {
		return fmt.Errorf("create organizer: %w", err)
	}

	for _, comp := range cfg.Components {
		if err := org.Configure(comp.Kind, comp.Options); err != nil {
			return fmt.Errorf("configure %s component: %w", comp.Kind, err)
		}
	}

	srv, err := server.New(org,
		server.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithOpenBrowser(cfg.Server.OpenBrowser && !cliCfg.NoBrowser),
	)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down", "timeout", cliCfg.ShutdownTimeout)
	return srv.Stop(cliCfg.ShutdownTimeout)
}

// loadConfig loads the file config (or defaults) and applies CLI
// overrides on top
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	cfg := config.Default()
	if cliCfg.ConfigPath != "" {
		loaded, err := config.Load(cliCfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cliCfg.Port != 0 {
		cfg.Server.Port = cliCfg.Port
	}
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// demoModel builds the model served when no external model is wired
// in: a sine stimulus and an integrator-ish follower to look at.
func demoModel() *model.Model {
	m := model.New("demo")

	_ = m.AddNode(&model.Node{
		Name:       "stim",
		Dimensions: 1,
		Output: func(t float64) []float64 {
			return []float64{math.Sin(2 * math.Pi * t)}
		},
	})
	_ = m.AddNode(&model.Node{
		Name:       "follower",
		Dimensions: 1,
		Output: func(t float64) []float64 {
			return []float64{math.Sin(2*math.Pi*t - 0.5)}
		},
	})

	return m
}
