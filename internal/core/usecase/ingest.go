package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
	"github.com/adityakrsna/finsight-rag/internal/core/ports"
)

// IngestRecordUseCase stores an uploaded corpus file, records its metadata,
// and publishes an event for the indexing worker.
type IngestRecordUseCase struct {
	repo    ports.RecordRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestRecordUseCase(
	repo ports.RecordRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestRecordUseCase {
	return &IngestRecordUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestRecordUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	source domain.Source,
	body io.Reader,
) (*domain.CorpusRecord, error) {
	if source == "" {
		source = inferSource(filename)
	}
	if source != domain.SourceDocuments && source != domain.SourceTransactions {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest record", fmt.Errorf("unknown source %q", source))
	}
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ingest record", errors.New("filename is empty"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	record := &domain.CorpusRecord{
		ID:            id,
		Filename:      filename,
		MimeType:      mimeType,
		StoragePath:   storageKey,
		Source:        source,
		ViolationTags: []string{},
		Status:        domain.StatusUploaded,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create record metadata: %w", err)
	}

	if err := uc.queue.PublishRecordIngested(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return record, nil
}

// inferSource routes tabular uploads to the transaction collection and
// everything else to the regulatory document collection.
func inferSource(filename string) domain.Source {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".csv":
		return domain.SourceTransactions
	default:
		return domain.SourceDocuments
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "record.bin"
	}
	return base
}
