package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/adityakrsna/finsight-rag/internal/config"
	"github.com/adityakrsna/finsight-rag/internal/core/domain"
	"github.com/adityakrsna/finsight-rag/internal/core/ports"
	"github.com/adityakrsna/finsight-rag/internal/core/usecase"
	"github.com/adityakrsna/finsight-rag/internal/infrastructure/chunking"
	"github.com/adityakrsna/finsight-rag/internal/infrastructure/extractor"
	"github.com/adityakrsna/finsight-rag/internal/infrastructure/llm/ollama"
	"github.com/adityakrsna/finsight-rag/internal/infrastructure/llm/openaichat"
	natsqueue "github.com/adityakrsna/finsight-rag/internal/infrastructure/queue/nats"
	"github.com/adityakrsna/finsight-rag/internal/infrastructure/repository/postgres"
	"github.com/adityakrsna/finsight-rag/internal/infrastructure/rerank/httpcross"
	"github.com/adityakrsna/finsight-rag/internal/infrastructure/resilience"
	"github.com/adityakrsna/finsight-rag/internal/infrastructure/storage/localfs"
	"github.com/adityakrsna/finsight-rag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.RecordRepository
	IngestUC  ports.RecordIngestor
	ProcessUC ports.RecordProcessor
	QueryUC   ports.QueryService
	StatsUC   ports.StatsProvider

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewRecordRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
		GenerateRPS:        cfg.GenerationRateLimitRPS,
	})
	embedder := ollama.NewEmbedder(ollamaClient)

	backends := []ports.GenerationBackend{ollama.NewGenerator(ollamaClient)}
	if cfg.OpenAIAPIKey != "" {
		backends = append(backends, openaichat.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
	}

	var reranker ports.Reranker
	if cfg.RerankerURL != "" {
		reranker = httpcross.New(cfg.RerankerURL, httpcross.Options{Model: cfg.RerankerModel})
	}

	vectorDB := qdrant.New(cfg.QdrantURL, map[domain.Source]string{
		domain.SourceDocuments:    cfg.QdrantDocumentsCollection,
		domain.SourceTransactions: cfg.QdrantTransactionsCollection,
	})
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.New(storage)

	pipelineCfg := usecase.PipelineConfig{
		DefaultResults:    cfg.PipelineDefaultResults,
		MaxResults:        cfg.PipelineMaxResults,
		OverfetchFactor:   cfg.PipelineOverfetchFactor,
		ShortQueryTokens:  cfg.PipelineShortQueryToken,
		FingerprintRunes:  cfg.PipelineFingerprintRunes,
		RetrievalTimeout:  time.Duration(cfg.RetrievalTimeoutMS) * time.Millisecond,
		GenerationTimeout: time.Duration(cfg.GenerationTimeoutMS) * time.Millisecond,
	}

	ingestUC := usecase.NewIngestRecordUseCase(repo, storage, queue)
	processUC := usecase.NewProcessRecordUseCase(repo, textExtractor, chunker, embedder, vectorDB)
	queryUC := usecase.NewAnswerQueryUseCase(embedder, vectorDB, reranker, backends, pipelineCfg)
	statsUC := usecase.NewStatsUseCase(vectorDB, nil, backends, reranker != nil)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,
		StatsUC:   statsUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
