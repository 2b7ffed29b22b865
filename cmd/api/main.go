package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"docindex/internal/chunker"
	"docindex/internal/config"
	"docindex/internal/embedding"
	"docindex/internal/http"
	"docindex/internal/rag"
	"docindex/internal/status"
	"docindex/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize status database
	db, err := status.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := status.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	store := status.NewSQLiteStore(db)
	tracker := status.NewTracker(store, cfg.StuckTimeout)

	ctx := context.Background()

	// Initialize Qdrant vector index
	index, err := vectorstore.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection, cfg.QdrantVectorSize)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := index.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure Qdrant schema: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := embedding.NewClient(embedding.Config{
		BaseURL:     cfg.EmbeddingBaseURL,
		APIKey:      cfg.EmbeddingAPIKey,
		Model:       cfg.EmbeddingModelName,
		BatchSize:   cfg.EmbeddingBatchSize,
		Concurrency: cfg.EmbeddingConcurrency,
	})
	probe, err := embedder.EmbedOne(ctx, "test")
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(probe) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(probe))
	}
	slog.Info("Embedding client validated", "model", cfg.EmbeddingModelName, "vector_size", cfg.QdrantVectorSize)

	// Token-aware chunker
	tokenizer, err := chunker.NewCL100KTokenizer()
	if err != nil {
		log.Fatalf("Failed to load tokenizer: %v", err)
	}
	tokenChunker, err := chunker.New(cfg.ChunkSizeTokens, cfg.ChunkOverlapTokens, tokenizer)
	if err != nil {
		log.Fatalf("Failed to create chunker: %v", err)
	}

	// Create document engine
	engine := rag.NewEngine(tokenChunker, embedder, index, tracker, cfg.DirectContextMaxChars)
	slog.Info("Document engine initialized",
		"chunk_size_tokens", cfg.ChunkSizeTokens,
		"chunk_overlap_tokens", cfg.ChunkOverlapTokens,
	)

	// Create router with dependencies
	deps := &http.Deps{
		Engine:         engine,
		Index:          index,
		DB:             db,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	router := http.NewRouter(deps)

	// Periodically sweep uploads stuck in processing
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			result, err := engine.SweepStuckUploads(sweepCtx)
			cancel()
			if err != nil {
				slog.Error("Sweep failed", "error", err)
				continue
			}
			if result.CleanedCount > 0 {
				slog.Warn("Sweep cleaned stuck uploads", "count", result.CleanedCount, "file_ids", result.FileIDs)
			}
		}
	}()

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
