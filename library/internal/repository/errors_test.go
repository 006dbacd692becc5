package repository

import (
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/library-service/library/internal/errs"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "active loan index",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: activeLoanIndex},
			want: errs.ErrCopyUnavailable,
		},
		{
			name: "other unique constraint",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "books_code_key"},
			want: errs.ErrDuplicate,
		},
		{
			name: "wrapped lock timeout",
			err:  fmt.Errorf("select: %w", &pgconn.PgError{Code: pgerrcode.LockNotAvailable}),
			want: errs.ErrConcurrencyConflict,
		},
		{
			name: "serialization failure",
			err:  &pgconn.PgError{Code: pgerrcode.SerializationFailure},
			want: errs.ErrConcurrencyConflict,
		},
		{
			name: "foreign key",
			err:  &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "copies_book_id_fkey"},
			want: errs.ErrNotFound,
		},
		{
			name: "not a postgres error",
			err:  plain,
			want: plain,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, classify(tt.err), tt.want)
		})
	}
}
