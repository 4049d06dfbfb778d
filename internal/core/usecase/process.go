package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
	"github.com/adityakrsna/finsight-rag/internal/core/ports"
)

// ProcessRecordUseCase turns an uploaded corpus file into indexed vector
// chunks: extract text, tag violation types with the taxonomy rule table,
// chunk, embed, and upsert into the record's source collection.
type ProcessRecordUseCase struct {
	repo      ports.RecordRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndexer
	rules     []categoryRule
}

func NewProcessRecordUseCase(
	repo ports.RecordRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndexer,
) *ProcessRecordUseCase {
	return &ProcessRecordUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		rules:     defaultCategoryRules(),
	}
}

func (uc *ProcessRecordUseCase) ProcessByID(ctx context.Context, recordID string) error {
	if err := uc.repo.UpdateStatus(ctx, recordID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	record, tags, chunkCount, err := uc.indexPipeline(ctx, recordID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, recordID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveIndexingResult(ctx, record.ID, tags, chunkCount); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, recordID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("save indexing result: %w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save indexing result: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, recordID, domain.StatusIndexed, ""); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}
	return nil
}

func (uc *ProcessRecordUseCase) indexPipeline(ctx context.Context, recordID string) (*domain.CorpusRecord, []string, int, error) {
	record, err := uc.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("fetch record by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, record)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return nil, nil, 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	tags := tagViolations(text, uc.rules)

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, nil, 0, domain.WrapError(domain.ErrInvalidInput, "chunk record", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, nil, 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	record.ViolationTags = tags
	if err := uc.index.IndexChunks(ctx, record, chunks, vectors); err != nil {
		return nil, nil, 0, fmt.Errorf("index chunks in vector db: %w", err)
	}

	return record, tags, len(chunks), nil
}
