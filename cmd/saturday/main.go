// Saturday is the backend daemon of a voice-driven browser assistant. It turns
// natural-language commands into browser action descriptors and relays
// recorded speech to a transcription model.
//
// Usage:
//
//	saturday [flags]
//	saturday --config /path/to/saturday.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nadzzz/saturday/internal/config"
	"github.com/nadzzz/saturday/internal/dispatch"
	"github.com/nadzzz/saturday/internal/health"
	"github.com/nadzzz/saturday/internal/inference"
	localinference "github.com/nadzzz/saturday/internal/inference/local"
	openaiinference "github.com/nadzzz/saturday/internal/inference/openai"
	"github.com/nadzzz/saturday/internal/inference/workersai"
	"github.com/nadzzz/saturday/internal/transport"
	grpctransport "github.com/nadzzz/saturday/internal/transport/grpc"
	httptransport "github.com/nadzzz/saturday/internal/transport/http"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/saturday.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("saturday %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("saturday starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the inference backend.
	capability, err := newCapability(cfg.Inference)
	if err != nil {
		slog.Error("failed to initialize inference backend", "error", err)
		os.Exit(1)
	}
	slog.Info("using inference backend",
		"backend", capability.Name(),
		"text_model", cfg.Inference.TextModel,
		"speech_model", cfg.Inference.SpeechModel,
		"strict_actions", cfg.Interpreter.StrictActions)

	dispatcher := dispatch.New(capability, dispatch.Options{
		StrictActions: cfg.Interpreter.StrictActions,
	})
	defer dispatcher.Close()

	healthServer := health.New(cfg.Server.HealthPort, capability.Name())

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP))
	}
	if cfg.Transports.GRPC.Enabled {
		g := grpctransport.New(cfg.Transports.GRPC)
		healthServer.OnReadyChange(g.SetServing)
		transports = append(transports, g)
	}

	// Start health check server.
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, dispatcher); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
				cancel()
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("saturday ready",
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("saturday stopped")
}

// newCapability builds the configured inference backend.
func newCapability(cfg config.InferenceConfig) (inference.Capability, error) {
	models := inference.Models{Text: cfg.TextModel, Speech: cfg.SpeechModel}

	switch cfg.Backend {
	case "workersai":
		return workersai.New(cfg.WorkersAI, models, cfg.Timeout), nil
	case "openai":
		return openaiinference.New(cfg.OpenAI, models, cfg.Timeout), nil
	case "local":
		return localinference.New(cfg.Local, models, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown inference backend %q", cfg.Backend)
	}
}
