package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rib4ko/essaouira-guide/internal/backend"
	"github.com/Rib4ko/essaouira-guide/internal/chat"
	"github.com/Rib4ko/essaouira-guide/internal/config"
	"github.com/Rib4ko/essaouira-guide/internal/event"
	"github.com/Rib4ko/essaouira-guide/internal/server"
	"github.com/Rib4ko/essaouira-guide/internal/telemetry"
	"github.com/Rib4ko/essaouira-guide/internal/tools"
)

func main() {
	cfg := config.Default()
	var configFile string

	flag.StringVar(&configFile, "config", "", "Path to TOML config file")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "Chat model name")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the events database")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	flag.BoolVar(&cfg.Serve, "serve", cfg.Serve, "Run the HTTP/WebSocket server instead of the REPL")
	flag.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Listen address in server mode")
	flag.IntVar(&cfg.MaxToolIterations, "max-tool-iterations", cfg.MaxToolIterations, "Maximum tool loop iterations per turn")
	flag.IntVar(&cfg.RequestTimeoutSeconds, "request-timeout", cfg.RequestTimeoutSeconds, "Per-request model timeout in seconds")
	flag.Parse()

	if configFile != "" {
		if err := config.LoadFile(configFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.FromEnv()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	db, err := telemetry.InitDB(cfg.DBPath)
	if err != nil {
		// The store masks an unreachable database with its fallback dataset.
		logger.Warn("events database unavailable, using fallback dataset", "error", err)
		db = nil
	} else {
		defer db.Close()
	}

	store := event.NewStore(db, logger, event.StoreOptions{
		CacheTTL: cfg.SearchCacheTTL(),
		Tracer:   tracer,
	})
	registry := tools.Catalog(store)

	client := backend.NewClient(backend.ClientConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.RequestTimeout(),
	}, logger)

	orch := chat.New(chat.BackendSessionFactory(client, registry), registry, logger, chat.Options{
		MaxToolIterations: cfg.MaxToolIterations,
		Tracer:            tracer,
		Meter:             meter,
	})

	if cfg.Serve {
		return server.New(orch, logger, cfg.ListenAddr).Run(ctx)
	}

	repl := &chat.REPL{
		Orchestrator: orch,
		Transcript:   &chat.Transcript{},
		Logger:       logger,
	}
	return repl.Run(ctx)
}
