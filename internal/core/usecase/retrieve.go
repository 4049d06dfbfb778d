package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

// retrieve fans out one nearest-neighbor search per (variant, source) pair,
// over-fetching beyond n to leave room for deduplication and reranking.
// Each call runs concurrently under its own timeout; a failed or timed-out
// call is logged and skipped. The flattened result preserves the
// deterministic (variant, source) issue order regardless of completion
// order. Every call failing is a retrieval failure.
func (uc *AnswerQueryUseCase) retrieve(
	ctx context.Context,
	variants []domain.QueryVariant,
	sources []domain.Source,
	n int,
) ([]domain.EvidenceCandidate, error) {
	texts := make([]string, len(variants))
	for i, variant := range variants {
		texts[i] = variant.Text
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "embed query variants", err)
	}
	if len(vectors) != len(variants) {
		return nil, domain.WrapError(
			domain.ErrRetrievalFailed,
			"embed query variants",
			fmt.Errorf("vectors/variants mismatch: %d/%d", len(vectors), len(variants)),
		)
	}

	type callResult struct {
		idx        int
		candidates []domain.EvidenceCandidate
		err        error
	}

	calls := len(variants) * len(sources)
	limit := n * uc.cfg.OverfetchFactor
	results := make(chan callResult, calls)

	for vi := range variants {
		for si := range sources {
			idx := vi*len(sources) + si
			kind := variants[vi].Kind
			vector := vectors[vi]
			source := sources[si]

			go func() {
				callCtx, cancel := context.WithTimeout(ctx, uc.cfg.RetrievalTimeout)
				defer cancel()

				candidates, err := uc.searcher.Search(callCtx, source, vector, limit)
				if err != nil {
					results <- callResult{idx: idx, err: fmt.Errorf("search source=%s variant=%s: %w", source, kind, err)}
					return
				}
				for i := range candidates {
					candidates[i].Source = source
					candidates[i].Variants = []domain.VariantKind{kind}
				}
				results <- callResult{idx: idx, candidates: candidates}
			}()
		}
	}

	ordered := make([][]domain.EvidenceCandidate, calls)
	failed := 0
	for i := 0; i < calls; i++ {
		res := <-results
		if res.err != nil {
			failed++
			slog.Warn("source_retrieval_skipped", "error", res.err)
			continue
		}
		ordered[res.idx] = res.candidates
	}

	// Partial results are discarded on cancellation rather than returned.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failed == calls {
		return nil, domain.WrapError(
			domain.ErrRetrievalFailed,
			"retrieve evidence",
			errors.New("all sources failed for all query variants"),
		)
	}

	var flat []domain.EvidenceCandidate
	for _, candidates := range ordered {
		flat = append(flat, candidates...)
	}
	return flat, nil
}
