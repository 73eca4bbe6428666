package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge/internal/config"
	"github.com/draftforge/draftforge/internal/embedder"
	"github.com/draftforge/draftforge/internal/fallback"
	"github.com/draftforge/draftforge/internal/gate"
	"github.com/draftforge/draftforge/internal/generator"
	"github.com/draftforge/draftforge/internal/logging"
	"github.com/draftforge/draftforge/internal/matcher"
	"github.com/draftforge/draftforge/internal/mcp"
	"github.com/draftforge/draftforge/internal/metrics"
	"github.com/draftforge/draftforge/internal/pipeline"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/internal/websearch"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// EnvConfigPath points at an optional YAML config file.
const EnvConfigPath = "DRAFTFORGE_CONFIG"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("DraftForge MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", store.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		fmt.Printf("Vector Extension: %v\n", store.VectorExtensionAvailable)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "draftforge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv(EnvConfigPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("draftforge starting",
		zap.String("version", version),
		zap.String("build_mode", store.BuildMode),
		zap.String("sqlite_driver", store.DriverName),
		zap.Bool("vector_fast_path", store.VectorExtensionAvailable),
	)

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store at %s: %w", cfg.DBPath, err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("init embedder: %w", err)
	}
	vectors := embedder.NewVectorSource(emb, cfg.EmbedTextCap)

	gen, err := generator.NewFromEnv()
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("init generator: %w", err)
	}

	logger.Info("capabilities ready",
		zap.String("embedding_provider", emb.Provider()),
		zap.Int("embedding_dimension", emb.Dimension()),
	)

	m := matcher.New(st, logger)
	g := gate.New(gen, gate.Config{
		MatchFloor:     cfg.MatchFloor,
		RerankFloor:    cfg.RerankFloor,
		DuplicateFloor: cfg.DuplicateFloor,
	}, logger)

	var fb *fallback.Orchestrator
	if apiKey := os.Getenv(websearch.EnvExaAPIKey); apiKey != "" && cfg.AllowFallback {
		searcher, err := websearch.NewExaSearcher(apiKey, cfg.SearchTimeout, logger)
		if err != nil {
			_ = st.Close()
			return fmt.Errorf("init web search: %w", err)
		}
		fetcher := websearch.NewFetcher(cfg.FetchTimeout, websearch.DefaultMaxContentSize)
		fb = fallback.New(searcher, fetcher, websearch.NewExtractor(), gen, vectors, st, fallback.Config{
			MaxCandidates:  cfg.FallbackCandidates,
			DuplicateFloor: cfg.DuplicateFloor,
		}, logger)
	} else {
		logger.Warn("web fallback disabled",
			zap.Bool("allow_fallback", cfg.AllowFallback),
			zap.Bool("api_key_set", os.Getenv(websearch.EnvExaAPIKey) != ""),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var met *metrics.Metrics
	if cfg.MetricsAddr != "" {
		met = metrics.Default()
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	pcfg := pipeline.Config{
		TopK:            cfg.TopK,
		DuplicateFloor:  cfg.DuplicateFloor,
		AllowFallback:   cfg.AllowFallback,
		EmbedTimeout:    cfg.EmbedTimeout,
		GenerateTimeout: cfg.GenerateTimeout,
	}
	var p *pipeline.Pipeline
	if fb != nil {
		p = pipeline.New(vectors, gen, m, g, fb, st, pcfg, met, logger)
	} else {
		p = pipeline.New(vectors, gen, m, g, nil, st, pcfg, met, logger)
	}

	srv := mcp.NewServer(p, st, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errCh <- srv.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}
	logger.Info("server stopped")
	return nil
}
