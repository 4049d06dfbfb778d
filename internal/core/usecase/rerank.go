package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

// Final score blend between the raw retrieval similarity and the
// cross-encoder relevance score.
const (
	similarityWeight = 0.4
	rerankWeight     = 0.6
)

// rerank scores every surviving candidate against the original query text
// with one batched cross-encoder call, re-sorts descending, and truncates to
// n. When the reranker is absent or unreachable it degrades to the raw
// similarity ordering — a recoverable condition reported via the second
// return value, never an error. Ties break by source priority (documents
// before transactions) and then by original retrieval order (stable sort).
func (uc *AnswerQueryUseCase) rerank(
	ctx context.Context,
	queryText string,
	candidates []domain.EvidenceCandidate,
	n int,
) ([]domain.RankedEvidence, bool, error) {
	if len(candidates) == 0 {
		return []domain.RankedEvidence{}, false, nil
	}

	ranked := make([]domain.RankedEvidence, len(candidates))
	for i, candidate := range candidates {
		ranked[i] = domain.RankedEvidence{
			EvidenceCandidate: candidate,
			RerankScore:       candidate.Similarity,
			FinalScore:        clamp01(candidate.Similarity),
		}
	}

	degraded := uc.reranker == nil
	if !degraded {
		passages := make([]string, len(candidates))
		for i, candidate := range candidates {
			passages[i] = candidate.Text
		}

		scores, err := uc.reranker.Rerank(ctx, queryText, passages)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, false, ctx.Err()
		case err != nil:
			slog.Warn("rerank_degraded", "error", err, "candidates", len(candidates))
			degraded = true
		case len(scores) != len(candidates):
			slog.Warn("rerank_degraded", "reason", "score count mismatch", "scores", len(scores), "candidates", len(candidates))
			degraded = true
		default:
			for i := range ranked {
				ranked[i].RerankScore = scores[i]
				ranked[i].FinalScore = similarityWeight*clamp01(candidates[i].Similarity) + rerankWeight*clamp01(scores[i])
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return sourcePriority(ranked[i].Source) < sourcePriority(ranked[j].Source)
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, degraded, nil
}

func sourcePriority(source domain.Source) int {
	for i, s := range domain.KnownSources() {
		if s == source {
			return i
		}
	}
	return len(domain.KnownSources())
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
