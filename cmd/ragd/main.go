// Ragd is a semantic code indexing daemon.
//
// It manages a set of registered repositories, chunks their source with
// tree-sitter, embeds the chunks through an OpenAI-compatible embedding
// service and stores the vectors in qdrant, one collection per repository.
// An HTTP API drives the lifecycle and answers similarity queries; an
// optional filesystem watcher reindexes repositories on change.
//
// Usage:
//
//	# Start with defaults
//	ragd
//
//	# Configure via file and environment
//	ragd --config /etc/ragd/config.yaml
//	WATCHER_ENABLED=true WATCHER_ROOT=/srv/repos ragd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rationalhq/ragd/internal/chunker"
	"github.com/rationalhq/ragd/internal/config"
	"github.com/rationalhq/ragd/internal/embeddings"
	ragdhttp "github.com/rationalhq/ragd/internal/http"
	"github.com/rationalhq/ragd/internal/indexer"
	"github.com/rationalhq/ragd/internal/logging"
	"github.com/rationalhq/ragd/internal/qdrant"
	"github.com/rationalhq/ragd/internal/registry"
	"github.com/rationalhq/ragd/internal/search"
	"github.com/rationalhq/ragd/internal/walker"
	"github.com/rationalhq/ragd/internal/watcher"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/ragd/config.yaml)")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  ragd           Start the ragd daemon\n")
			fmt.Fprintf(os.Stderr, "  ragd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("ragd\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the services together and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting ragd",
		zap.String("version", version),
		zap.String("commit", gitCommit),
	)

	store, err := qdrant.NewGRPCClient(&qdrant.ClientConfig{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey.Value(),
		UseTLS: cfg.Qdrant.UseTLS,
	}, logger)
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}
	defer func() { _ = store.Close() }()

	reg := registry.New(cfg.Registry.Path, logger)
	if err := reg.Load(); err != nil {
		return fmt.Errorf("loading repository registry: %w", err)
	}

	embedder := embeddings.NewClient(embeddings.Config{
		BaseURL:   cfg.Embeddings.BaseURL,
		APIKey:    cfg.Embeddings.APIKey.Value(),
		Model:     cfg.Embeddings.Model,
		BatchSize: cfg.Embeddings.BatchSize,
	}, logger)

	chk := chunker.New(chunker.NewRegistry(), logger)
	wlk := walker.New(chk, logger)

	idx := indexer.New(reg, store, embedder, wlk, logger)
	searcher := search.New(reg, store, embedder, logger)

	if report, err := idx.Reconcile(ctx); err != nil {
		logger.Warn("startup reconciliation failed", zap.Error(err))
	} else if len(report.Missing) > 0 || len(report.Orphaned) > 0 {
		logger.Warn("registry and vector store diverge",
			zap.Strings("repos_without_collections", report.Missing),
			zap.Strings("collections_without_repos", report.Orphaned),
		)
	}

	srv, err := ragdhttp.NewServer(idx, searcher, logger, &ragdhttp.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	if cfg.Watcher.Enabled {
		w := watcher.New(cfg.Watcher.Root, idx, logger,
			watcher.WithTick(cfg.Watcher.Tick.Duration()),
			watcher.WithWindow(cfg.Watcher.Window.Duration()),
		)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
