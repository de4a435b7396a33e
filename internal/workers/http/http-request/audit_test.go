package httprequest

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advanced-http-worker/internal/common/database"
	"advanced-http-worker/internal/common/errors"
)

func newTestAuditStore(t *testing.T) (*AuditStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewAuditStore(database.NewPostgresFromDB(db))
	store.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestAuditStore_EnsureSchema(t *testing.T) {
	store, mock := newTestAuditStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS http_request_audit").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_http_request_audit_job_key").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditStore_Record(t *testing.T) {
	tests := []struct {
		name  string
		entry AuditEntry
		args  []driver.Value
	}{
		{
			name: "successful request masks headers",
			entry: AuditEntry{
				JobKey: 42, ItemIndex: 0, Method: "GET", URL: "https://api.example.com",
				Headers:    map[string]string{"Authorization": "Bearer abcdefghijklmnop"},
				StatusCode: 200, Duration: 12 * time.Millisecond,
			},
			args: []driver.Value{
				sqlmock.AnyArg(), int64(42), int64(0), "GET", "https://api.example.com",
				`{"Authorization":"Bea...nop"}`, int64(200), int64(12), nil,
				time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "failed request without response",
			entry: AuditEntry{
				JobKey: 42, ItemIndex: 3, Method: "POST", URL: "https://api.example.com",
				Error: "Network error",
			},
			args: []driver.Value{
				sqlmock.AnyArg(), int64(42), int64(3), "POST", "https://api.example.com",
				`{}`, nil, int64(0), "Network error",
				time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestAuditStore(t)
			mock.ExpectExec("INSERT INTO http_request_audit").
				WithArgs(tt.args...).
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, store.Record(context.Background(), tt.entry))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAuditStore_RecordFailure(t *testing.T) {
	store, mock := newTestAuditStore(t)
	mock.ExpectExec("INSERT INTO http_request_audit").
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "http_request_audit" does not exist`})

	err := store.Record(context.Background(), AuditEntry{JobKey: 1, Method: "GET", URL: "https://api.example.com"})
	require.Error(t, err)

	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeDatabaseInsertFailed, stdErr.Code)
	assert.Equal(t, "42P01", stdErr.Metadata["pgCode"])
}
