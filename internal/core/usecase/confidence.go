package usecase

import "github.com/adityakrsna/finsight-rag/internal/core/domain"

// Confidence signal weights. Each term is monotonic in its signal: a higher
// top score, more independent sources in the evidence, and a smaller
// shortfall against the requested count each raise confidence.
const (
	topScoreWeight  = 0.6
	diversityWeight = 0.25
	fillWeight      = 0.15
)

// computeConfidence derives a single [0,1] confidence value from the ranked
// evidence. Empty evidence is exactly 0; non-empty evidence is strictly
// positive because the diversity term is at least 1/configuredSources.
func computeConfidence(evidence []domain.RankedEvidence, requested, configuredSources int) domain.Confidence {
	if len(evidence) == 0 {
		return domain.Confidence{}
	}
	if requested <= 0 {
		requested = len(evidence)
	}
	if configuredSources <= 0 {
		configuredSources = 1
	}

	top := clamp01(evidence[0].FinalScore)

	distinct := make(map[domain.Source]struct{}, configuredSources)
	for _, ev := range evidence {
		distinct[ev.Source] = struct{}{}
	}
	diversity := float64(len(distinct)) / float64(configuredSources)
	if diversity > 1 {
		diversity = 1
	}

	fill := float64(len(evidence)) / float64(requested)
	if fill > 1 {
		fill = 1
	}

	return domain.Confidence{
		Score:         clamp01(topScoreWeight*top + diversityWeight*diversity + fillWeight*fill),
		EvidenceCount: len(evidence),
		ScoreSpread:   evidence[0].FinalScore - evidence[len(evidence)-1].FinalScore,
	}
}
