package repository

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/library-service/library/internal/model"
)

const loanSelect = "SELECT id, copy_id, member_id, admin_id, issued_at, due_at, returned_at, voided_at FROM loans"

func TestListLoansQuery(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   model.LoanFilter
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "all loans skip voided ones",
			filter:  model.LoanFilter{},
			wantSQL: loanSelect + " WHERE voided_at IS NULL ORDER BY issued_at desc, id desc",
		},
		{
			name:     "active loans of a member",
			filter:   model.LoanFilter{MemberID: 4, State: model.LoanStateActive},
			wantSQL:  loanSelect + " WHERE voided_at IS NULL AND member_id = $1 AND returned_at IS NULL ORDER BY issued_at desc, id desc",
			wantArgs: []interface{}{int64(4)},
		},
		{
			name:    "returned loans",
			filter:  model.LoanFilter{State: model.LoanStateReturned},
			wantSQL: loanSelect + " WHERE voided_at IS NULL AND returned_at IS NOT NULL ORDER BY issued_at desc, id desc",
		},
		{
			name:     "overdue loans of an operator, oldest due first",
			filter:   model.LoanFilter{AdminID: "desk-1", State: model.LoanStateOverdue, Now: now},
			wantSQL:  loanSelect + " WHERE voided_at IS NULL AND admin_id = $1 AND returned_at IS NULL AND due_at < $2 ORDER BY due_at asc, id asc",
			wantArgs: []interface{}{"desk-1", now},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := listLoansQuery(tt.filter).ToSql()
			require.NoError(t, err)
			require.Equal(t, tt.wantSQL, query)
			if len(tt.wantArgs) == 0 {
				require.Empty(t, args)
				return
			}
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCountLoansSkipsVoided(t *testing.T) {
	t.Parallel()
	b := applyLoanFilter(qb.Select("count(*)").From(loansTableName), model.LoanFilter{State: model.LoanStateActive})
	query, args, err := b.ToSql()
	require.NoError(t, err)
	require.Equal(t, "SELECT count(*) FROM loans WHERE voided_at IS NULL AND returned_at IS NULL", query)
	require.Empty(t, args)
}

func TestSelectForUpdate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		b       sq.SelectBuilder
		wantSQL string
	}{
		{
			name:    "copy",
			b:       selectForUpdate(copiesTableName, copyColumns, 9),
			wantSQL: "SELECT id, code, book_id, sequence, available, retired_at, created_at FROM copies WHERE id = $1 for update",
		},
		{
			name:    "loan",
			b:       selectForUpdate(loansTableName, loanColumns, 9),
			wantSQL: loanSelect + " WHERE id = $1 for update",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := tt.b.ToSql()
			require.NoError(t, err)
			require.Equal(t, tt.wantSQL, query)
			require.Equal(t, []interface{}{int64(9)}, args)
		})
	}
}
