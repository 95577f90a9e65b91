package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mklnsk/feedback-insight/internal/core/domain"
)

// FeedbackRepository stores anonymized feedback documents. Raw text is
// redacted before it reaches this layer; the table never holds PII.
type FeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
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

func (r *FeedbackRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS feedback_documents (
	id TEXT PRIMARY KEY,
	anonymized_text TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_documents_created_at ON feedback_documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) Create(ctx context.Context, doc *domain.Document) error {
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO feedback_documents (id, anonymized_text, metadata, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE
SET anonymized_text = EXCLUDED.anonymized_text, metadata = EXCLUDED.metadata
`,
		doc.ID, doc.AnonymizedText, metadataJSON, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback document: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshal ids: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, anonymized_text, metadata, created_at
FROM feedback_documents
WHERE id IN (SELECT jsonb_array_elements_text($1::jsonb))
`, idsJSON)
	if err != nil {
		return nil, fmt.Errorf("query feedback documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (r *FeedbackRepository) ListAll(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, anonymized_text, metadata, created_at
FROM feedback_documents
ORDER BY created_at, id
`)
	if err != nil {
		return nil, fmt.Errorf("list feedback documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]domain.Document, error) {
	var out []domain.Document
	for rows.Next() {
		var doc domain.Document
		var metadataRaw []byte
		if err := rows.Scan(&doc.ID, &doc.AnonymizedText, &metadataRaw, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback document: %w", err)
		}
		if err := json.Unmarshal(metadataRaw, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback documents: %w", err)
	}
	return out, nil
}
