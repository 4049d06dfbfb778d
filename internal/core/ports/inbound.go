package ports

import (
	"context"
	"io"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

// QueryService is the inbound contract for the retrieval-and-answer pipeline.
type QueryService interface {
	AnswerQuery(ctx context.Context, query domain.Query) (*domain.QueryResponse, error)
}

// RecordIngestor is the inbound contract for corpus file upload.
type RecordIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, source domain.Source, body io.Reader) (*domain.CorpusRecord, error)
}

// RecordProcessor is the inbound contract for asynchronous indexing.
type RecordProcessor interface {
	ProcessByID(ctx context.Context, recordID string) error
}

// RecordReader is the inbound read model for corpus record state.
type RecordReader interface {
	GetByID(ctx context.Context, id string) (*domain.CorpusRecord, error)
}

// StatsProvider reports corpus and backend statistics.
type StatsProvider interface {
	CorpusStats(ctx context.Context) (*domain.CorpusStats, error)
}
