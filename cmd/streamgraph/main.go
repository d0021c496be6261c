package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/xiaonanln/streamgraph/cmd/streamgraph/streamgraphconfig"
	"github.com/xiaonanln/streamgraph/cmd/streamgraph/streamserver"
	"github.com/xiaonanln/streamgraph/config"
	"github.com/xiaonanln/streamgraph/explorer"
	"github.com/xiaonanln/streamgraph/layout"
	"github.com/xiaonanln/streamgraph/util/logger"
)

// envFileVar names an optional dotenv file loaded before the flags are parsed.
const envFileVar = "STREAMGRAPH_ENV_FILE"

// loadEnv loads the dotenv file named by STREAMGRAPH_ENV_FILE, or .env when
// it exists.
func loadEnv() error {
	envfile := os.Getenv(envFileVar)
	if envfile == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	log.Println("loading env file:", envfile)
	if err := godotenv.Load(envfile); err != nil {
		return fmt.Errorf("failed to load %s: %w", envfile, err)
	}
	return nil
}

// newExplorer builds the explorer described by cfg.
func newExplorer(cfg *config.Config) (*explorer.Explorer, error) {
	events, err := cfg.NewEventValidator()
	if err != nil {
		return nil, err
	}

	var graph *layout.Graph
	if cfg.Explorer.Graph != "" {
		graph, err = layout.LoadGraph(cfg.Explorer.Graph, explorer.StreamNames)
		if err != nil {
			return nil, err
		}
	}

	return explorer.New(explorer.Config{
		TickInterval: cfg.Explorer.TickInterval,
		MaxHistory:   cfg.Explorer.MaxHistory,
		Graph:        graph,
		Events:       events,
	})
}

func run(ctx context.Context, cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetDefaultLevel(level)

	ex, err := newExplorer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create explorer: %w", err)
	}
	defer ex.Stop()

	srv := streamserver.New(ex, streamserver.Config{
		HTTPAddr:  cfg.Server.HTTPAddr,
		GRPCAddr:  cfg.Server.GRPCAddr,
		MsPerSlot: cfg.Explorer.MsPerSlot,
	})
	return srv.Run(ctx)
}

func main() {
	if err := loadEnv(); err != nil {
		log.Fatal(err)
	}

	cfg := streamgraphconfig.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("streamgraph: %v", err)
	}
	log.Println("streamgraph stopped")
}
