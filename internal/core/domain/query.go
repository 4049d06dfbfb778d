package domain

import "time"

// Source identifies one independently searchable corpus collection.
type Source string

const (
	SourceDocuments    Source = "documents"
	SourceTransactions Source = "transactions"
)

// KnownSources returns every source collection in retrieval priority order.
// Regulatory documents outrank transaction records when scores tie.
func KnownSources() []Source {
	return []Source{SourceDocuments, SourceTransactions}
}

// Query is a validated, immutable question against the corpus.
// Source is empty when the caller wants every collection searched.
type Query struct {
	Text            string
	NResults        int
	Source          Source
	IncludeMetadata bool
}

type VariantKind string

const (
	VariantOriginal   VariantKind = "original"
	VariantExpanded   VariantKind = "expanded"
	VariantTechnical  VariantKind = "technical"
	VariantContextual VariantKind = "contextual"
)

// QueryVariant is one alternate phrasing used to widen retrieval recall.
type QueryVariant struct {
	Text string
	Kind VariantKind
}

// EvidenceCandidate is a single retrieved unit before deduplication and
// reranking. Variants records which query phrasings surfaced it.
type EvidenceCandidate struct {
	Source     Source
	ChunkID    string
	Text       string
	Similarity float64
	Metadata   map[string]string
	Variants   []VariantKind
}

// RankedEvidence is an EvidenceCandidate annotated with its cross-encoder
// score, the blended final score, and a 1-based rank position.
type RankedEvidence struct {
	EvidenceCandidate
	RerankScore float64
	FinalScore  float64
	Rank        int
}

// Confidence summarizes how well-supported the answer is by the evidence.
// Score is always in [0,1] and exactly 0 when no evidence was found.
type Confidence struct {
	Score         float64
	EvidenceCount int
	ScoreSpread   float64
}

// FallbackBackend marks answers assembled deterministically from evidence
// instead of produced by a generation model.
const FallbackBackend = "fallback"

// Answer is the generated (or fallback) response text plus the evidence it
// cites and the backend that actually produced it.
type Answer struct {
	Text     string
	Backend  string
	Evidence []RankedEvidence
}

// QueryResponse is the complete pipeline result for one query invocation.
// RerankDegraded reports that the cross-encoder was unreachable and raw
// similarity ordering was used instead; it is metadata, not a failure.
type QueryResponse struct {
	Answer         string
	Backend        string
	Confidence     Confidence
	Classification Classification
	Evidence       []RankedEvidence
	RerankDegraded bool
	Elapsed        time.Duration
}
