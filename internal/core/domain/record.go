package domain

import "time"

type RecordStatus string

const (
	StatusUploaded   RecordStatus = "uploaded"
	StatusProcessing RecordStatus = "processing"
	StatusIndexed    RecordStatus = "indexed"
	StatusFailed     RecordStatus = "failed"
)

// CorpusRecord is one ingested source file (a regulatory document or a batch
// of transaction records) tracked through the indexing pipeline.
type CorpusRecord struct {
	ID            string       `json:"id"`
	Filename      string       `json:"filename"`
	MimeType      string       `json:"mime_type"`
	StoragePath   string       `json:"storage_path"`
	Source        Source       `json:"source"`
	ViolationTags []string     `json:"violation_tags,omitempty"`
	ChunkCount    int          `json:"chunk_count,omitempty"`
	Status        RecordStatus `json:"status"`
	Error         string       `json:"error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// CorpusStats reports per-collection index sizes and the configured
// generation backends.
type CorpusStats struct {
	Counts          map[Source]int `json:"counts"`
	Total           int            `json:"total"`
	Backends        []string       `json:"backends"`
	RerankerEnabled bool           `json:"reranker_enabled"`
}
