package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
	"github.com/adityakrsna/finsight-rag/internal/core/ports"
)

type fakeTextExtractor struct {
	text string
	err  error
}

func (f *fakeTextExtractor) Extract(context.Context, *domain.CorpusRecord) (string, error) {
	return f.text, f.err
}

type fakeChunker struct {
	size int
}

func (f *fakeChunker) Split(text string) []string {
	size := f.size
	if size <= 0 {
		size = 40
	}
	var out []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

type fakeIndexer struct {
	indexed struct {
		record *domain.CorpusRecord
		chunks []string
	}
	counts   map[domain.Source]int
	indexErr error
}

func (f *fakeIndexer) IndexChunks(_ context.Context, record *domain.CorpusRecord, chunks []string, vectors [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	if len(chunks) != len(vectors) {
		return errors.New("chunks/vectors mismatch")
	}
	f.indexed.record = record
	f.indexed.chunks = chunks
	return nil
}

func (f *fakeIndexer) Count(_ context.Context, source domain.Source) (int, error) {
	return f.counts[source], nil
}

func uploadedRecord(id string) *domain.CorpusRecord {
	now := time.Now().UTC()
	return &domain.CorpusRecord{
		ID:          id,
		Filename:    "order.txt",
		MimeType:    "text/plain",
		StoragePath: id + "_order.txt",
		Source:      domain.SourceDocuments,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestProcessRecordHappyPath(t *testing.T) {
	repo := &fakeRecordRepo{records: map[string]*domain.CorpusRecord{
		"rec-1": uploadedRecord("rec-1"),
	}}
	extractor := &fakeTextExtractor{
		text: "The insider traded ahead of the announcement. A monetary penalty and disgorgement were imposed on the noticee by the adjudicating officer.",
	}
	indexer := &fakeIndexer{}
	uc := NewProcessRecordUseCase(repo, extractor, &fakeChunker{}, &fakeEmbedder{}, indexer)

	if err := uc.ProcessByID(context.Background(), "rec-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.statuses) < 2 {
		t.Fatalf("expected processing then indexed statuses, got %v", repo.statuses)
	}
	if repo.statuses[0] != domain.StatusProcessing {
		t.Fatalf("first status must be processing, got %s", repo.statuses[0])
	}
	if repo.statuses[len(repo.statuses)-1] != domain.StatusIndexed {
		t.Fatalf("final status must be indexed, got %s", repo.statuses[len(repo.statuses)-1])
	}

	if indexer.indexed.record == nil || len(indexer.indexed.chunks) == 0 {
		t.Fatalf("expected chunks indexed")
	}
	if repo.saved.id != "rec-1" || repo.saved.chunks != len(indexer.indexed.chunks) {
		t.Fatalf("indexing result not persisted: %+v", repo.saved)
	}

	foundInsider := false
	for _, tag := range repo.saved.tags {
		if tag == string(domain.CategoryInsiderTrading) {
			foundInsider = true
		}
	}
	if !foundInsider {
		t.Fatalf("expected insider_trading violation tag, got %v", repo.saved.tags)
	}
}

func TestProcessRecordExtractionFailureMarksFailed(t *testing.T) {
	repo := &fakeRecordRepo{records: map[string]*domain.CorpusRecord{
		"rec-2": uploadedRecord("rec-2"),
	}}
	extractor := &fakeTextExtractor{err: errors.New("corrupt pdf")}
	uc := NewProcessRecordUseCase(repo, extractor, &fakeChunker{}, &fakeEmbedder{}, &fakeIndexer{})

	err := uc.ProcessByID(context.Background(), "rec-2")
	if err == nil {
		t.Fatalf("expected extraction error")
	}
	if repo.records["rec-2"].Status != domain.StatusFailed {
		t.Fatalf("record must be marked failed, got %s", repo.records["rec-2"].Status)
	}
	if repo.records["rec-2"].Error == "" {
		t.Fatalf("failure reason must be recorded")
	}
}

func TestProcessRecordEmptyTextFails(t *testing.T) {
	repo := &fakeRecordRepo{records: map[string]*domain.CorpusRecord{
		"rec-3": uploadedRecord("rec-3"),
	}}
	uc := NewProcessRecordUseCase(repo, &fakeTextExtractor{text: ""}, &fakeChunker{}, &fakeEmbedder{}, &fakeIndexer{})

	err := uc.ProcessByID(context.Background(), "rec-3")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if repo.records["rec-3"].Status != domain.StatusFailed {
		t.Fatalf("record must be marked failed, got %s", repo.records["rec-3"].Status)
	}
}

func TestProcessRecordIndexFailureMarksFailed(t *testing.T) {
	repo := &fakeRecordRepo{records: map[string]*domain.CorpusRecord{
		"rec-4": uploadedRecord("rec-4"),
	}}
	indexer := &fakeIndexer{indexErr: errors.New("qdrant unavailable")}
	uc := NewProcessRecordUseCase(repo, &fakeTextExtractor{text: "insider trading order text"}, &fakeChunker{}, &fakeEmbedder{}, indexer)

	err := uc.ProcessByID(context.Background(), "rec-4")
	if err == nil {
		t.Fatalf("expected index error")
	}
	if repo.records["rec-4"].Status != domain.StatusFailed {
		t.Fatalf("record must be marked failed, got %s", repo.records["rec-4"].Status)
	}
}

func TestProcessRecordMissingRecord(t *testing.T) {
	repo := &fakeRecordRepo{records: map[string]*domain.CorpusRecord{}}
	uc := NewProcessRecordUseCase(repo, &fakeTextExtractor{text: "x"}, &fakeChunker{}, &fakeEmbedder{}, &fakeIndexer{})

	err := uc.ProcessByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestCorpusStats(t *testing.T) {
	indexer := &fakeIndexer{counts: map[domain.Source]int{
		domain.SourceDocuments:    12,
		domain.SourceTransactions: 7,
	}}
	backend := &fakeBackend{name: "ollama", response: "x"}
	uc := NewStatsUseCase(indexer, nil, []ports.GenerationBackend{backend}, true)

	stats, err := uc.CorpusStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 19 {
		t.Fatalf("expected total 19, got %d", stats.Total)
	}
	if stats.Counts[domain.SourceDocuments] != 12 || stats.Counts[domain.SourceTransactions] != 7 {
		t.Fatalf("unexpected counts: %v", stats.Counts)
	}
	if len(stats.Backends) != 2 || stats.Backends[0] != "ollama" || stats.Backends[1] != domain.FallbackBackend {
		t.Fatalf("unexpected backends: %v", stats.Backends)
	}
	if !stats.RerankerEnabled {
		t.Fatalf("expected reranker enabled")
	}
}
