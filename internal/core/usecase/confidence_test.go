package usecase

import (
	"testing"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

func rankedEv(source domain.Source, score float64) domain.RankedEvidence {
	return domain.RankedEvidence{
		EvidenceCandidate: domain.EvidenceCandidate{Source: source},
		FinalScore:        score,
	}
}

func TestComputeConfidenceEmptyEvidenceIsZero(t *testing.T) {
	got := computeConfidence(nil, 10, 2)
	if got.Score != 0 || got.EvidenceCount != 0 || got.ScoreSpread != 0 {
		t.Fatalf("expected zero confidence for empty evidence, got %+v", got)
	}
}

func TestComputeConfidenceNonEmptyIsPositive(t *testing.T) {
	evidence := []domain.RankedEvidence{rankedEv(domain.SourceDocuments, 0.0)}
	got := computeConfidence(evidence, 10, 2)
	if got.Score <= 0 {
		t.Fatalf("non-empty evidence must yield positive confidence, got %f", got.Score)
	}
}

func TestComputeConfidenceBounded(t *testing.T) {
	evidence := []domain.RankedEvidence{
		rankedEv(domain.SourceDocuments, 5.0),
		rankedEv(domain.SourceTransactions, 4.0),
	}
	got := computeConfidence(evidence, 1, 2)
	if got.Score < 0 || got.Score > 1 {
		t.Fatalf("confidence out of range: %f", got.Score)
	}
}

func TestComputeConfidenceRewardsDiversityAndFill(t *testing.T) {
	single := computeConfidence([]domain.RankedEvidence{
		rankedEv(domain.SourceDocuments, 0.8),
	}, 2, 2)

	diverse := computeConfidence([]domain.RankedEvidence{
		rankedEv(domain.SourceDocuments, 0.8),
		rankedEv(domain.SourceTransactions, 0.8),
	}, 2, 2)

	if diverse.Score <= single.Score {
		t.Fatalf("two sources at the same top score should raise confidence: %f vs %f", diverse.Score, single.Score)
	}
}

func TestComputeConfidenceMonotonicInTopScore(t *testing.T) {
	low := computeConfidence([]domain.RankedEvidence{rankedEv(domain.SourceDocuments, 0.3)}, 1, 2)
	high := computeConfidence([]domain.RankedEvidence{rankedEv(domain.SourceDocuments, 0.9)}, 1, 2)
	if high.Score <= low.Score {
		t.Fatalf("higher top score should raise confidence: %f vs %f", high.Score, low.Score)
	}
}

func TestComputeConfidenceScoreSpread(t *testing.T) {
	evidence := []domain.RankedEvidence{
		rankedEv(domain.SourceDocuments, 0.9),
		rankedEv(domain.SourceDocuments, 0.6),
		rankedEv(domain.SourceDocuments, 0.4),
	}
	got := computeConfidence(evidence, 3, 2)
	if got.EvidenceCount != 3 {
		t.Fatalf("expected evidence count 3, got %d", got.EvidenceCount)
	}
	if diff := got.ScoreSpread - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected spread 0.5, got %f", got.ScoreSpread)
	}
}
