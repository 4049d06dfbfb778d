package ports

import (
	"context"
	"io"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

// Embedder builds vectors for corpus chunks and query variant text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher performs nearest-neighbor retrieval against one source
// collection's vector index.
type VectorSearcher interface {
	Search(ctx context.Context, source domain.Source, vector []float32, limit int) ([]domain.EvidenceCandidate, error)
}

// VectorIndexer writes corpus chunks into a source collection and reports
// collection sizes.
type VectorIndexer interface {
	IndexChunks(ctx context.Context, record *domain.CorpusRecord, chunks []string, vectors [][]float32) error
	Count(ctx context.Context, source domain.Source) (int, error)
}

// Reranker scores (query, passage) pairs with a cross-encoder model in one
// batched call. Scores align with the passages slice. Callers fall back to
// the original retrieval scores when it errors.
type Reranker interface {
	Rerank(ctx context.Context, query string, passages []string) ([]float64, error)
}

// GenerationBackend produces a free-text completion for a grounded prompt.
type GenerationBackend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// RecordRepository persists and reads corpus record state.
type RecordRepository interface {
	Create(ctx context.Context, record *domain.CorpusRecord) error
	GetByID(ctx context.Context, id string) (*domain.CorpusRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.RecordStatus, errMessage string) error
	SaveIndexingResult(ctx context.Context, id string, violationTags []string, chunkCount int) error
}

// ObjectStorage stores raw source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes corpus ingestion events.
type MessageQueue interface {
	PublishRecordIngested(ctx context.Context, recordID string) error
	SubscribeRecordIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored corpus record.
type TextExtractor interface {
	Extract(ctx context.Context, record *domain.CorpusRecord) (string, error)
}

// Chunker splits extracted text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}
