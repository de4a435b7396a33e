package httprequest

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"advanced-http-worker/internal/common/database"
	"advanced-http-worker/internal/common/errors"
	"advanced-http-worker/internal/common/masking"
)

// AuditRecorder receives one entry per executed request.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

type AuditEntry struct {
	JobKey     int64
	ItemIndex  int
	Method     string
	URL        string
	Headers    map[string]string
	StatusCode int
	Duration   time.Duration
	Error      string
}

const createAuditTable = `CREATE TABLE IF NOT EXISTS http_request_audit (
	id          UUID PRIMARY KEY,
	job_key     BIGINT NOT NULL,
	item_index  INTEGER NOT NULL,
	method      VARCHAR(10) NOT NULL,
	url         TEXT NOT NULL,
	headers     JSONB NOT NULL DEFAULT '{}',
	status_code INTEGER,
	duration_ms BIGINT NOT NULL,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL
)`

const createAuditIndex = `CREATE INDEX IF NOT EXISTS idx_http_request_audit_job_key ON http_request_audit (job_key)`

const insertAudit = `INSERT INTO http_request_audit
	(id, job_key, item_index, method, url, headers, status_code, duration_ms, error, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// AuditStore writes audit entries to postgres. Header values are masked before storage.
type AuditStore struct {
	db  *database.PostgresClient
	now func() time.Time
}

func NewAuditStore(db *database.PostgresClient) *AuditStore {
	return &AuditStore{db: db, now: time.Now}
}

func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	if err := s.db.Migrate(ctx, createAuditTable, createAuditIndex); err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	return nil
}

func (s *AuditStore) Record(ctx context.Context, entry AuditEntry) error {
	headers := masking.MaskHeaders(entry.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}

	status := sql.NullInt64{Int64: int64(entry.StatusCode), Valid: entry.StatusCode > 0}
	errText := sql.NullString{String: entry.Error, Valid: entry.Error != ""}

	_, err = s.db.Exec(ctx, insertAudit,
		uuid.New().String(),
		entry.JobKey,
		entry.ItemIndex,
		entry.Method,
		entry.URL,
		string(headersJSON),
		status,
		entry.Duration.Milliseconds(),
		errText,
		s.now().UTC(),
	)
	if err != nil {
		stdErr := errors.NewDatabaseInsertFailedError(err)
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) {
			stdErr.WithMetadata("pgCode", string(pqErr.Code))
		}
		return stdErr
	}
	return nil
}
