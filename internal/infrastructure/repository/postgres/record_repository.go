package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/adityakrsna/finsight-rag/internal/core/domain"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS corpus_records (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	source TEXT NOT NULL,
	violation_tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corpus_records_status ON corpus_records(status);
CREATE INDEX IF NOT EXISTS idx_corpus_records_created_at ON corpus_records(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RecordRepository) Create(ctx context.Context, record *domain.CorpusRecord) error {
	tagsJSON, err := json.Marshal(tagsOrEmpty(record.ViolationTags))
	if err != nil {
		return fmt.Errorf("marshal violation tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO corpus_records (
	id, filename, mime_type, storage_path, source, violation_tags, chunk_count, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		record.ID, record.Filename, record.MimeType, record.StoragePath, string(record.Source),
		tagsJSON, record.ChunkCount, string(record.Status), record.Error, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert corpus record: %w", err)
	}
	return nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (*domain.CorpusRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, source, violation_tags, chunk_count, status, COALESCE(error_message, ''), created_at, updated_at
FROM corpus_records
WHERE id = $1
`, id)

	var record domain.CorpusRecord
	var tagsRaw []byte
	var source, status string

	err := row.Scan(
		&record.ID, &record.Filename, &record.MimeType, &record.StoragePath, &source,
		&tagsRaw, &record.ChunkCount, &status, &record.Error, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRecordNotFound, "get record", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan corpus record: %w", err)
	}

	if err := json.Unmarshal(tagsRaw, &record.ViolationTags); err != nil {
		return nil, fmt.Errorf("unmarshal violation tags: %w", err)
	}
	record.Source = domain.Source(source)
	record.Status = domain.RecordStatus(status)
	return &record, nil
}

func (r *RecordRepository) UpdateStatus(ctx context.Context, id string, status domain.RecordStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE corpus_records
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update record status: %w", err)
	}
	return checkAffected(res, id)
}

func (r *RecordRepository) SaveIndexingResult(ctx context.Context, id string, violationTags []string, chunkCount int) error {
	tagsJSON, err := json.Marshal(tagsOrEmpty(violationTags))
	if err != nil {
		return fmt.Errorf("marshal violation tags: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE corpus_records
SET violation_tags = $2, chunk_count = $3, updated_at = $4
WHERE id = $1
`, id, tagsJSON, chunkCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save indexing result: %w", err)
	}
	return checkAffected(res, id)
}

func checkAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrRecordNotFound, "update record", fmt.Errorf("id %s", id))
	}
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
