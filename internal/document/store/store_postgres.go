package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"veridoc/internal/document/models"
	"veridoc/pkg/platform/sentinel"
	"veridoc/pkg/requestcontext"
)

// Postgres persists document records in PostgreSQL. The unique constraint on
// reference_number backs the duplicate check; revocation is a conditional
// UPDATE so concurrent revokes cannot both win.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is the table this store expects. Kept here so integration tests and
// deployments share one definition.
const Schema = `
CREATE TABLE IF NOT EXISTS document_records (
	reference_number     TEXT PRIMARY KEY,
	record_id            TEXT NOT NULL,
	document_type        TEXT NOT NULL,
	holder_fields        JSONB NOT NULL,
	issued_at            TIMESTAMPTZ NOT NULL,
	valid_until          TIMESTAMPTZ NOT NULL,
	content_hash         TEXT NOT NULL,
	verification_payload TEXT NOT NULL,
	status               TEXT NOT NULL DEFAULT 'active',
	status_changed_at    TIMESTAMPTZ,
	status_reason        TEXT
)`

const uniqueViolation = "23505"

func (s *Postgres) Save(ctx context.Context, md models.DocumentMetadata) error {
	// Holder fields are stored as a JSON array of {name,value} pairs: a JSON
	// object would lose the insertion order the artifact layout depends on.
	fields, err := json.Marshal(md.HolderFields)
	if err != nil {
		return fmt.Errorf("marshal holder fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO document_records (
			reference_number, record_id, document_type, holder_fields,
			issued_at, valid_until, content_hash, verification_payload, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		md.ReferenceNumber, md.ID, md.DocumentType, fields,
		md.IssuedAt, md.ValidUntil, md.ContentHash, md.VerificationPayload, md.Status,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrDuplicateReference
		}
		return fmt.Errorf("save document record: %w", err)
	}
	return nil
}

func (s *Postgres) GetByReference(ctx context.Context, reference string) (models.DocumentMetadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT reference_number, record_id, document_type, holder_fields,
		       issued_at, valid_until, content_hash, verification_payload,
		       status, status_changed_at, status_reason
		FROM document_records
		WHERE reference_number = $1`,
		reference,
	)

	var (
		md           models.DocumentMetadata
		fields       []byte
		changedAt    sql.NullTime
		statusReason sql.NullString
	)
	err := row.Scan(
		&md.ReferenceNumber, &md.ID, &md.DocumentType, &fields,
		&md.IssuedAt, &md.ValidUntil, &md.ContentHash, &md.VerificationPayload,
		&md.Status, &changedAt, &statusReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DocumentMetadata{}, sentinel.ErrNotFound
		}
		return models.DocumentMetadata{}, fmt.Errorf("find document record: %w", err)
	}

	if err := json.Unmarshal(fields, &md.HolderFields); err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("unmarshal holder fields: %w", err)
	}
	if changedAt.Valid {
		md.StatusChangedAt = changedAt.Time
	}
	if statusReason.Valid {
		md.StatusReason = statusReason.String
	}
	return md, nil
}

func (s *Postgres) Revoke(ctx context.Context, reference, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE document_records
		SET status = $1, status_changed_at = $2, status_reason = $3
		WHERE reference_number = $4 AND status = $5`,
		models.StatusRevoked, requestcontext.Now(ctx).UTC(), reason,
		reference, models.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("revoke document record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke document record: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing updated: absent, or already revoked.
	var status models.Status
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM document_records WHERE reference_number = $1`,
		reference,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("revoke document record: %w", err)
	}
	if status == models.StatusRevoked {
		return sentinel.ErrAlreadyRevoked
	}
	return sentinel.ErrUnavailable
}

func (s *Postgres) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
