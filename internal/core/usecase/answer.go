package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
	"github.com/adityakrsna/finsight-rag/internal/core/ports"
)

// PipelineConfig carries the tunables of the retrieval pipeline.
type PipelineConfig struct {
	Sources          []domain.Source
	DefaultResults   int
	MaxResults       int
	OverfetchFactor  int
	ShortQueryTokens int
	FingerprintRunes int

	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
}

func (c PipelineConfig) normalize() PipelineConfig {
	out := c
	if len(out.Sources) == 0 {
		out.Sources = domain.KnownSources()
	}
	if out.DefaultResults <= 0 {
		out.DefaultResults = 10
	}
	if out.MaxResults <= 0 {
		out.MaxResults = 50
	}
	if out.OverfetchFactor <= 1 {
		out.OverfetchFactor = 2
	}
	if out.ShortQueryTokens <= 0 {
		out.ShortQueryTokens = 6
	}
	if out.FingerprintRunes <= 0 {
		out.FingerprintRunes = 100
	}
	if out.RetrievalTimeout <= 0 {
		out.RetrievalTimeout = 3 * time.Second
	}
	if out.GenerationTimeout <= 0 {
		out.GenerationTimeout = 30 * time.Second
	}
	return out
}

// AnswerQueryUseCase runs the multi-stage pipeline: classify, expand,
// retrieve per (variant, source), dedupe, rerank, score confidence, and
// generate an answer with graceful degradation at every stage.
type AnswerQueryUseCase struct {
	embedder ports.Embedder
	searcher ports.VectorSearcher
	reranker ports.Reranker
	backends []ports.GenerationBackend
	rules    []categoryRule
	cfg      PipelineConfig
}

// NewAnswerQueryUseCase wires the pipeline. reranker may be nil, which
// permanently selects the raw-similarity ordering. backends are tried in
// order; an empty slice means every answer is the deterministic fallback.
func NewAnswerQueryUseCase(
	embedder ports.Embedder,
	searcher ports.VectorSearcher,
	reranker ports.Reranker,
	backends []ports.GenerationBackend,
	cfg PipelineConfig,
) *AnswerQueryUseCase {
	return &AnswerQueryUseCase{
		embedder: embedder,
		searcher: searcher,
		reranker: reranker,
		backends: backends,
		rules:    defaultCategoryRules(),
		cfg:      cfg.normalize(),
	}
}

func (uc *AnswerQueryUseCase) AnswerQuery(ctx context.Context, query domain.Query) (*domain.QueryResponse, error) {
	started := time.Now()

	query, err := uc.validate(query)
	if err != nil {
		return nil, err
	}

	classification := classifyQuery(query.Text, uc.rules)
	variants := optimizeQuery(query.Text, classification, uc.cfg.ShortQueryTokens)
	sources := uc.sourcesFor(query)

	candidates, err := uc.retrieve(ctx, variants, sources, query.NResults)
	if err != nil {
		return nil, err
	}

	unique := dedupeCandidates(candidates, uc.cfg.FingerprintRunes)

	evidence, rerankDegraded, err := uc.rerank(ctx, query.Text, unique, query.NResults)
	if err != nil {
		return nil, err
	}

	confidence := computeConfidence(evidence, query.NResults, len(sources))
	answer := uc.generate(ctx, query, classification, evidence)

	if !query.IncludeMetadata {
		for i := range evidence {
			evidence[i].Metadata = nil
		}
	}

	return &domain.QueryResponse{
		Answer:         answer.Text,
		Backend:        answer.Backend,
		Confidence:     confidence,
		Classification: classification,
		Evidence:       evidence,
		RerankDegraded: rerankDegraded,
		Elapsed:        time.Since(started),
	}, nil
}

func (uc *AnswerQueryUseCase) validate(query domain.Query) (domain.Query, error) {
	query.Text = strings.TrimSpace(query.Text)
	if query.Text == "" {
		return query, domain.WrapError(domain.ErrInvalidQuery, "validate query", errors.New("query text is empty"))
	}
	if query.NResults == 0 {
		query.NResults = uc.cfg.DefaultResults
	}
	if query.NResults < 0 || query.NResults > uc.cfg.MaxResults {
		return query, domain.WrapError(
			domain.ErrInvalidQuery,
			"validate query",
			fmt.Errorf("n_results must be between 1 and %d, got %d", uc.cfg.MaxResults, query.NResults),
		)
	}
	if query.Source != "" && !uc.knownSource(query.Source) {
		return query, domain.WrapError(
			domain.ErrInvalidQuery,
			"validate query",
			fmt.Errorf("unknown source filter %q", query.Source),
		)
	}
	return query, nil
}

func (uc *AnswerQueryUseCase) knownSource(source domain.Source) bool {
	for _, s := range uc.cfg.Sources {
		if s == source {
			return true
		}
	}
	return false
}

func (uc *AnswerQueryUseCase) sourcesFor(query domain.Query) []domain.Source {
	if query.Source != "" {
		return []domain.Source{query.Source}
	}
	return uc.cfg.Sources
}
