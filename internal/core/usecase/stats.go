package usecase

import (
	"context"
	"fmt"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
	"github.com/adityakrsna/finsight-rag/internal/core/ports"
)

// StatsUseCase reports per-collection index sizes and the configured
// generation backends.
type StatsUseCase struct {
	index           ports.VectorIndexer
	sources         []domain.Source
	backendNames    []string
	rerankerEnabled bool
}

func NewStatsUseCase(index ports.VectorIndexer, sources []domain.Source, backends []ports.GenerationBackend, rerankerEnabled bool) *StatsUseCase {
	if len(sources) == 0 {
		sources = domain.KnownSources()
	}
	names := make([]string, 0, len(backends)+1)
	for _, backend := range backends {
		names = append(names, backend.Name())
	}
	names = append(names, domain.FallbackBackend)
	return &StatsUseCase{
		index:           index,
		sources:         sources,
		backendNames:    names,
		rerankerEnabled: rerankerEnabled,
	}
}

func (uc *StatsUseCase) CorpusStats(ctx context.Context) (*domain.CorpusStats, error) {
	counts := make(map[domain.Source]int, len(uc.sources))
	total := 0
	for _, source := range uc.sources {
		count, err := uc.index.Count(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("count collection %s: %w", source, err)
		}
		counts[source] = count
		total += count
	}
	return &domain.CorpusStats{
		Counts:          counts,
		Total:           total,
		Backends:        uc.backendNames,
		RerankerEnabled: uc.rerankerEnabled,
	}, nil
}
