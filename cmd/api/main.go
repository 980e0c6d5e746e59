package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"github.com/lritter14/askdoc/internal/answer"
	"github.com/lritter14/askdoc/internal/config"
	"github.com/lritter14/askdoc/internal/http"
	"github.com/lritter14/askdoc/internal/ingest"
	"github.com/lritter14/askdoc/internal/llm"
	"github.com/lritter14/askdoc/internal/questions"
	"github.com/lritter14/askdoc/internal/retrieval"
	"github.com/lritter14/askdoc/internal/store"
	"github.com/lritter14/askdoc/internal/textsplit"
	"github.com/lritter14/askdoc/internal/vectorindex"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	recordStore, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer func() {
		_ = recordStore.Close()
	}()
	slog.Info("Record store initialized", "path", cfg.DBPath)

	ctx := context.Background()

	index, err := vectorindex.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := index.EnsureCollection(ctx, cfg.EmbeddingDim); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingDim)

	// One-time model initialization; fail fast if the backends are down.
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDim, cfg.EmbedTimeout)
	if err := embedder.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize embedding client: %v", err)
	}
	slog.Info("Embedding client validated", "model", embedder.ModelVersion(), "vector_size", cfg.EmbeddingDim)

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.ChatTimeout)
	if err := llmClient.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}
	slog.Info("LLM client validated", "model", cfg.LLMModelName)

	questionSynth := questions.NewSynthesizer(llmClient, cfg.QuestionsPerChunk)

	pipeline := ingest.NewPipeline(embedder, questionSynth, recordStore, index, ingest.Options{
		MaxChunkSize: cfg.MaxChunkSize,
		Mode:         textsplit.ParseMode(cfg.ChunkMode),
		Workers:      cfg.IngestWorkers,
	})

	engine := retrieval.NewEngine(embedder, recordStore, cfg.TopKDefault, cfg.SimilarityThreshold)
	synthesizer := answer.NewSynthesizer(engine, llmClient)
	slog.Info("Retrieval engine initialized", "top_k", cfg.TopKDefault, "threshold", cfg.SimilarityThreshold)

	deps := &http.Deps{
		Searcher:       engine,
		Answerer:       synthesizer,
		Ingester:       pipeline,
		Embedder:       embedder,
		Store:          recordStore,
		Index:          index,
		EmbeddingModel: embedder.ModelVersion(),
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
