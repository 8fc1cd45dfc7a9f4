package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapDBError_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{"nil passes through", nil, ""},
		{"deadline exceeded", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"sql no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"pgx no rows", pgx.ErrNoRows, ErrCodeNotFound},
		{"wrapped no rows", fmt.Errorf("get job: %w", sql.ErrNoRows), ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.wantCode, GetCode(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapDBError_UnrecognizedPassesThrough(t *testing.T) {
	plain := errors.New("connection refused")
	assert.Same(t, plain, MapDBError(plain))
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.UniqueViolation,
		Detail: "Key (user_id)=(u-1) already exists.",
	}

	got := MapDBError(pgErr)
	require.True(t, IsConflict(got))
	assert.Equal(t, "user_id", GetField(got))
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name        string
		detail      string
		table       string
		wantContain string
	}{
		{
			name:        "referenced parent",
			detail:      `Key (id)=(j-1) is still referenced from table "job_history".`,
			wantContain: "in use by Job History",
		},
		{
			name:        "missing parent",
			detail:      `Key (job_id)=(j-9) is not present in table "cargo_jobs".`,
			wantContain: "referenced Cargo Job does not exist",
		},
		{
			name:        "table name fallback",
			table:       "ai_chat_analytics",
			wantContain: "in use by Chat Analytics",
		},
		{
			name:        "no detail at all",
			wantContain: "this item is in use",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{
				Code:      pgerrcode.ForeignKeyViolation,
				Detail:    tt.detail,
				TableName: tt.table,
			}

			got := MapDBError(pgErr)
			assert.Equal(t, ErrCodeForeignKey, GetCode(got))

			var appErr *AppError
			require.ErrorAs(t, got, &appErr)
			assert.Contains(t, appErr.Message, tt.wantContain)
		})
	}
}

func TestMapDBError_ValidationViolations(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"check violation", pgerrcode.CheckViolation},
		{"not null violation", pgerrcode.NotNullViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(&pgconn.PgError{Code: tt.code, ColumnName: "agreed_price"})
			assert.True(t, IsValidation(got))
			assert.Equal(t, "agreed_price", GetField(got))
		})
	}
}

func TestMapDBError_UnknownPgCodeBecomesInternal(t *testing.T) {
	got := MapDBError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	assert.Equal(t, ErrCodeInternal, GetCode(got))
}

func TestMapTableToDomain(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{"cargo_jobs", "Cargo Job"},
		{"notification_preferences", "Notification Preferences"},
		{" CARGO_JOBS ", "Cargo Job"},
		{"mystery_table", "Mystery Table"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mapTableToDomain(tt.table))
	}
}
