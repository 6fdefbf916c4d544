// Package main provides the CLI entrypoint for facetrackd.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facetrackd/facetrackd/internal/config"
	"github.com/facetrackd/facetrackd/internal/obslog"
	"github.com/facetrackd/facetrackd/pkg/calibstore"
	"github.com/facetrackd/facetrackd/pkg/control"
	"github.com/facetrackd/facetrackd/pkg/discovery"
	"github.com/facetrackd/facetrackd/pkg/expression"
	"github.com/facetrackd/facetrackd/pkg/ingest"
	"github.com/facetrackd/facetrackd/pkg/ingest/extmodule"
	"github.com/facetrackd/facetrackd/pkg/ingest/nettrack"
	"github.com/facetrackd/facetrackd/pkg/orchestrator"
	"github.com/facetrackd/facetrackd/pkg/pipeline"
	"github.com/facetrackd/facetrackd/pkg/registry"
	"github.com/facetrackd/facetrackd/pkg/transport"
)

var version = "0.1.0"

const autoSaveInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to JSON configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "Log format: text, json")
	sendAddr := flag.String("send-addr", "", "OSC/UDP send address (overrides config)")
	sendPort := flag.Int("send-port", 0, "OSC/UDP send port (overrides config)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "facetrackd - real-time face and eye tracking aggregator\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # Run with default settings\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config facetrackd.json  # Run with custom config\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -log-level debug         # Verbose logging\n", os.Args[0])
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("facetrackd version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *sendAddr != "" {
		cfg.OSC.SendAddress = *sendAddr
	}
	if *sendPort > 0 {
		cfg.OSC.SendPort = *sendPort
	}

	logger := obslog.New(obslog.Config{Level: *logLevel, Format: *logFormat})

	source, err := buildSource(cfg)
	if err != nil {
		logger.Error("failed to build ingestion adapter", "error", err)
		os.Exit(1)
	}

	store := calibstore.New(cfg.Calibration.File, obslog.Component(logger, "calibstore"))
	if err := store.Load(); err != nil {
		logger.Warn("failed to load calibration data, starting uncalibrated", "error", err)
	}

	pipe, err := buildPipeline(cfg, store, obslog.Component(logger, "pipeline"))
	if err != nil {
		logger.Error("failed to build mutation pipeline", "error", err)
		os.Exit(1)
	}
	if err := pipe.Initialize(pipeline.Config{
		Smoothness: cfg.Mutator.Smoothness,
		Calibration: pipeline.CalibrationConfig{
			Enabled:    cfg.Calibration.Enabled,
			Continuous: cfg.Calibration.Continuous,
			Blend:      cfg.Calibration.Blend,
		},
		CrosstalkReduction: cfg.Mutator.CrosstalkReduction,
	}); err != nil {
		logger.Error("failed to initialize mutation pipeline", "error", err)
		os.Exit(1)
	}
	reg := registry.New(obslog.Component(logger, "registry"))

	backend, browser, err := buildTransport(cfg, logger)
	if err != nil {
		logger.Error("failed to build transport backend", "error", err)
		os.Exit(1)
	}
	if browser == nil {
		reg.Rebuild(genericSnapshot())
	}

	orch := orchestrator.New(orchestrator.Config{
		Source:   source,
		Pipeline: pipe,
		Registry: reg,
		Backend:  backend,
		Browser:  browser,
		MaxFPS:   cfg.MaxFPS,
		Logger:   obslog.Component(logger, "orchestrator"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}
	logger.Info("facetrackd started",
		"module", cfg.Module.Active, "runtime", cfg.Module.Runtime, "output_mode", cfg.OSC.OutputMode)

	ctrl := control.New(cfg.Control.ListenAddr, orch, store, obslog.Component(logger, "control"))
	ctrl.Start()
	logger.Info("control surface listening", "addr", cfg.Control.ListenAddr)

	saver := calibstore.NewAutoSaver(store, autoSaveInterval, func() bool { return cfg.Calibration.Enabled }, obslog.Component(logger, "calibstore"))
	saver.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	saver.Stop()
	if err := ctrl.Stop(); err != nil {
		logger.Warn("control server shutdown error", "error", err)
	}
	if err := orch.Stop(); err != nil {
		logger.Warn("orchestrator shutdown error", "error", err)
	}
	if err := store.Save(); err != nil {
		logger.Warn("final calibration save failed", "error", err)
	}
	if err := backend.Close(); err != nil {
		logger.Warn("transport close error", "error", err)
	}
}

// buildPipeline constructs the mutation pipeline. When Mutator.Pipeline
// names an explicit ordered subset of steps, that subset is built instead
// of pipeline.Default's full ordering.
func buildPipeline(cfg *config.Config, store *calibstore.Store, logger *slog.Logger) (*pipeline.Pipeline, error) {
	if len(cfg.Mutator.Pipeline) == 0 {
		return pipeline.Default(logger, store), nil
	}
	steps, err := pipeline.FromNames(cfg.Mutator.Pipeline, store)
	if err != nil {
		return nil, err
	}
	return pipeline.New(logger, steps...), nil
}

// buildSource constructs the configured ingestion adapter. Only adapters
// that are fully self-contained from config are wired here: nettrack binds
// its own UDP socket, and extmodule opens its shared-memory region by
// name. headset and vdesktop require a vendor SDK Reader/Region supplied
// by the embedding host process, so they are not reachable from this CLI —
// they remain importable as library packages for callers that construct
// one directly.
func buildSource(cfg *config.Config) (ingest.Source, error) {
	if cfg.Module.Runtime == config.RuntimeExternal {
		mapping, err := extmodule.OpenSharedMemory(cfg.Module.ExternalSocket)
		if err != nil {
			return nil, fmt.Errorf("opening external module shared memory %q: %w", cfg.Module.ExternalSocket, err)
		}
		return extmodule.New(mapping), nil
	}

	switch cfg.Module.Active {
	case "nettrack":
		return nettrack.New(), nil
	default:
		return nil, fmt.Errorf("module.active %q is not constructible from configuration alone; "+
			"it requires a vendor SDK binding supplied by an embedding host", cfg.Module.Active)
	}
}

// buildTransport constructs the outbound backend and, for OSC Query-
// discoverable platforms, the mDNS browser that keeps the registry
// resolved against the loaded avatar.
func buildTransport(cfg *config.Config, logger *slog.Logger) (transport.Backend, *discovery.Browser, error) {
	switch cfg.OSC.OutputMode {
	case "vrchat", "resonite":
		backend := transport.NewOscUDP(cfg.OSC.OutputMode, cfg.OSC.SendAddress, cfg.OSC.SendPort, obslog.Component(logger, "transport"))
		browser := discovery.New(obslog.Component(logger, "discovery"))
		return backend, browser, nil
	case "generic":
		backend, err := transport.NewGenericUdp(cfg.OSC.SendAddress, cfg.OSC.SendPort)
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported osc.output_mode %q", cfg.OSC.OutputMode)
	}
}

// genericSnapshot builds a wildcard registry snapshot for the generic
// transport, which has no OSC Query tree to discover against: every
// signal's plain DefaultPrefix address is declared Unknown-typed (the
// FT-fallback addresses are not declared here; FloatParam/BoolParam add
// them on Reset), which resolves Float/Bool parameters (but not the binary bit-encoding, which
// has no fixed address to probe for without a real discovered schema).
func genericSnapshot() *registry.Snapshot {
	types := make(map[string]registry.WireType)
	names := []string{"EyeLidLeft", "EyeLidRight", "EyeLeftX", "EyeLeftY", "EyeRightX", "EyeRightY", "EyeTrackingActive"}
	for _, sig := range expression.All() {
		names = append(names, sig.String())
	}
	for _, name := range names {
		types[registry.DefaultPrefix+name] = registry.Unknown
	}
	return registry.NewSnapshot(types)
}
