package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/model"
)

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

var _ Repository = (*repository)(nil)

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName   = `books`
	copiesTableName  = `copies`
	membersTableName = `members`
	loansTableName   = `loans`
	historyTableName = `history`

	// lockTimeout bounds how long a transaction waits on a row lock before
	// the attempt is reported as a concurrency conflict.
	lockTimeout = `3s`
)

var (
	qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	bookColumns    = []string{"id", "code", "title", "author"}
	copyColumns    = []string{"id", "code", "book_id", "sequence", "available", "retired_at", "created_at"}
	memberColumns  = []string{"id", "membership_id", "first_name", "last_name", "address"}
	loanColumns    = []string{"id", "copy_id", "member_id", "admin_id", "issued_at", "due_at", "returned_at", "voided_at"}
	historyColumns = []string{"id", "event_uid", "action", "coalesce(loan_id, 0) as loan_id", "coalesce(copy_id, 0) as copy_id",
		"coalesce(member_id, 0) as member_id", "admin_id", "detail", "occurred_at"}
)

func returning(columns []string) string {
	return "returning " + strings.Join(columns, ", ")
}

func get[T any](ctx context.Context, q sqlx.QueryerContext, b sq.Sqlizer, subject string) (T, error) {
	var v T
	query, args, err := b.ToSql()
	if err != nil {
		return v, err
	}
	if err := sqlx.GetContext(ctx, q, &v, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return v, errors.Wrap(errs.ErrNotFound, subject)
		}
		return v, classify(err)
	}
	return v, nil
}

func list[T any](ctx context.Context, q sqlx.QueryerContext, b sq.Sqlizer) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	items := make([]T, 0)
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, classify(err)
	}
	return items, nil
}

func exec(ctx context.Context, e sqlx.ExecerContext, b sq.Sqlizer, subject string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrap(errs.ErrNotFound, subject)
	}
	return nil
}

func (r *repository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

func (r *repository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("set local lock_timeout = '%s'", lockTimeout)); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Error("tx.Rollback", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

func (r *repository) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	b := qb.Insert(booksTableName).
		Columns("code", "title", "author").
		Values(book.Code, book.Title, book.Author).
		Suffix(returning(bookColumns))
	created, err := get[model.Book](ctx, r.db, b, "book")
	if err != nil {
		r.log.Error("CreateBook", zap.String("code", book.Code), zap.Error(err))
		return model.Book{}, err
	}
	return created, nil
}

func (r *repository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	b := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Eq{"id": id})
	return get[model.Book](ctx, r.db, b, fmt.Sprintf("book %d", id))
}

func (r *repository) ListBooks(ctx context.Context) ([]model.Book, error) {
	b := qb.Select(bookColumns...).
		From(booksTableName).
		OrderBy("title", "id")
	return list[model.Book](ctx, r.db, b)
}

func (r *repository) AddCopies(ctx context.Context, bookID int64, count int, now time.Time) ([]model.Copy, error) {
	var copies []model.Copy
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		// the book row lock serializes sequence allocation per book
		book, err := get[model.Book](ctx, tx, qb.Select(bookColumns...).
			From(booksTableName).
			Where(sq.Eq{"id": bookID}).
			Suffix("for update"), fmt.Sprintf("book %d", bookID))
		if err != nil {
			return err
		}

		var maxSeq int
		query, args, err := qb.Select("coalesce(max(sequence), 0)").
			From(copiesTableName).
			Where(sq.Eq{"book_id": bookID}).
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &maxSeq, query, args...); err != nil {
			return classify(err)
		}

		ins := qb.Insert(copiesTableName).Columns("code", "book_id", "sequence", "available", "created_at")
		for i := 1; i <= count; i++ {
			seq := maxSeq + i
			ins = ins.Values(fmt.Sprintf("%s-%d", book.Code, seq), bookID, seq, true, now)
		}
		copies, err = list[model.Copy](ctx, tx, ins.Suffix(returning(copyColumns)))
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(copies, func(i, j int) bool { return copies[i].Sequence < copies[j].Sequence })
	return copies, nil
}

func (r *repository) GetCopy(ctx context.Context, id int64) (model.Copy, error) {
	b := qb.Select(copyColumns...).
		From(copiesTableName).
		Where(sq.Eq{"id": id})
	return get[model.Copy](ctx, r.db, b, fmt.Sprintf("copy %d", id))
}

func (r *repository) GetCopyByCode(ctx context.Context, code string) (model.Copy, error) {
	b := qb.Select(copyColumns...).
		From(copiesTableName).
		Where(sq.Eq{"code": code})
	return get[model.Copy](ctx, r.db, b, fmt.Sprintf("copy %q", code))
}

func (r *repository) ListCopies(ctx context.Context, bookID int64, availableOnly bool) ([]model.Copy, error) {
	b := qb.Select(copyColumns...).
		From(copiesTableName).
		Where(sq.Eq{"book_id": bookID})
	if availableOnly {
		b = b.Where(sq.Eq{"available": true, "retired_at": nil})
	}
	b = b.OrderBy("sequence asc")
	return list[model.Copy](ctx, r.db, b)
}

func (r *repository) CreateMember(ctx context.Context, member model.Member) (model.Member, error) {
	b := qb.Insert(membersTableName).
		Columns("membership_id", "first_name", "last_name", "address").
		Values(member.MembershipID, member.FirstName, member.LastName, member.Address).
		Suffix(returning(memberColumns))
	created, err := get[model.Member](ctx, r.db, b, "member")
	if err != nil {
		r.log.Error("CreateMember", zap.String("membershipID", member.MembershipID), zap.Error(err))
		return model.Member{}, err
	}
	return created, nil
}

func (r *repository) GetMember(ctx context.Context, membershipID string) (model.Member, error) {
	return getMember(ctx, r.db, membershipID)
}

func getMember(ctx context.Context, q sqlx.QueryerContext, membershipID string) (model.Member, error) {
	b := qb.Select(memberColumns...).
		From(membersTableName).
		Where(sq.Eq{"membership_id": membershipID})
	return get[model.Member](ctx, q, b, fmt.Sprintf("member %q", membershipID))
}

func (r *repository) ListMembers(ctx context.Context) ([]model.Member, error) {
	b := qb.Select(memberColumns...).
		From(membersTableName).
		OrderBy("last_name", "first_name", "id")
	return list[model.Member](ctx, r.db, b)
}

func (r *repository) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	b := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"id": id})
	return get[model.Loan](ctx, r.db, b, fmt.Sprintf("loan %d", id))
}

func applyLoanFilter(b sq.SelectBuilder, f model.LoanFilter) sq.SelectBuilder {
	b = b.Where(sq.Eq{"voided_at": nil})
	if f.MemberID != 0 {
		b = b.Where(sq.Eq{"member_id": f.MemberID})
	}
	if f.AdminID != "" {
		b = b.Where(sq.Eq{"admin_id": f.AdminID})
	}
	switch f.State {
	case model.LoanStateActive:
		b = b.Where(sq.Eq{"returned_at": nil})
	case model.LoanStateReturned:
		b = b.Where(sq.NotEq{"returned_at": nil})
	case model.LoanStateOverdue:
		b = b.Where(sq.Eq{"returned_at": nil}).Where(sq.Lt{"due_at": f.Now})
	}
	return b
}

// listLoansQuery orders overdue listings by due date, oldest first, and every
// other listing by issue date, newest first.
func listLoansQuery(filter model.LoanFilter) sq.SelectBuilder {
	b := applyLoanFilter(qb.Select(loanColumns...).From(loansTableName), filter)
	if filter.State == model.LoanStateOverdue {
		return b.OrderBy("due_at asc", "id asc")
	}
	return b.OrderBy("issued_at desc", "id desc")
}

func (r *repository) ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	return list[model.Loan](ctx, r.db, listLoansQuery(filter))
}

func (r *repository) ListHistory(ctx context.Context, loanID int64) ([]model.HistoryRecord, error) {
	b := qb.Select(historyColumns...).
		From(historyTableName).
		Where(sq.Eq{"loan_id": loanID}).
		OrderBy("occurred_at asc", "id asc")
	return list[model.HistoryRecord](ctx, r.db, b)
}

func (r *repository) count(ctx context.Context, b sq.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (r *repository) CountBooks(ctx context.Context) (int, error) {
	return r.count(ctx, qb.Select("count(*)").From(booksTableName))
}

func (r *repository) CountCopies(ctx context.Context) (int, error) {
	return r.count(ctx, qb.Select("count(*)").From(copiesTableName))
}

func (r *repository) CountMembers(ctx context.Context) (int, error) {
	return r.count(ctx, qb.Select("count(*)").From(membersTableName))
}

func (r *repository) CountLoans(ctx context.Context, filter model.LoanFilter) (int, error) {
	return r.count(ctx, applyLoanFilter(qb.Select("count(*)").From(loansTableName), filter))
}

type txRepository struct {
	tx *sqlx.Tx
}

func selectForUpdate(table string, columns []string, id int64) sq.SelectBuilder {
	return qb.Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		Suffix("for update")
}

func (t *txRepository) CopyForUpdate(ctx context.Context, id int64) (model.Copy, error) {
	b := selectForUpdate(copiesTableName, copyColumns, id)
	return get[model.Copy](ctx, t.tx, b, fmt.Sprintf("copy %d", id))
}

func (t *txRepository) LoanForUpdate(ctx context.Context, id int64) (model.Loan, error) {
	b := selectForUpdate(loansTableName, loanColumns, id)
	return get[model.Loan](ctx, t.tx, b, fmt.Sprintf("loan %d", id))
}

func (t *txRepository) MemberByMembershipID(ctx context.Context, membershipID string) (model.Member, error) {
	return getMember(ctx, t.tx, membershipID)
}

func (t *txRepository) ActiveLoanByCopy(ctx context.Context, copyID int64) (model.Loan, error) {
	b := qb.Select(loanColumns...).
		From(loansTableName).
		Where(sq.Eq{"copy_id": copyID, "returned_at": nil, "voided_at": nil}).
		Limit(1)
	return get[model.Loan](ctx, t.tx, b, fmt.Sprintf("active loan of copy %d", copyID))
}

func (t *txRepository) InsertLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	b := qb.Insert(loansTableName).
		Columns("copy_id", "member_id", "admin_id", "issued_at", "due_at").
		Values(loan.CopyID, loan.MemberID, loan.AdminID, loan.IssuedAt, loan.DueAt).
		Suffix(returning(loanColumns))
	return get[model.Loan](ctx, t.tx, b, "loan")
}

func (t *txRepository) SetLoanReturned(ctx context.Context, loanID int64, at *time.Time) error {
	b := qb.Update(loansTableName).
		Set("returned_at", at).
		Where(sq.Eq{"id": loanID})
	return exec(ctx, t.tx, b, fmt.Sprintf("loan %d", loanID))
}

func (t *txRepository) VoidLoan(ctx context.Context, loanID int64, at time.Time) error {
	b := qb.Update(loansTableName).
		Set("voided_at", at).
		Where(sq.Eq{"id": loanID})
	return exec(ctx, t.tx, b, fmt.Sprintf("loan %d", loanID))
}

func (t *txRepository) SetCopyAvailable(ctx context.Context, copyID int64, available bool) error {
	b := qb.Update(copiesTableName).
		Set("available", available).
		Where(sq.Eq{"id": copyID})
	return exec(ctx, t.tx, b, fmt.Sprintf("copy %d", copyID))
}

func (t *txRepository) RetireCopy(ctx context.Context, copyID int64, at time.Time) error {
	b := qb.Update(copiesTableName).
		Set("retired_at", at).
		Where(sq.Eq{"id": copyID})
	return exec(ctx, t.tx, b, fmt.Sprintf("copy %d", copyID))
}

func (t *txRepository) InsertHistory(ctx context.Context, rec model.HistoryRecord) (model.HistoryRecord, error) {
	b := qb.Insert(historyTableName).
		Columns("event_uid", "action", "loan_id", "copy_id", "member_id", "admin_id", "detail", "occurred_at").
		Values(rec.EventUid, rec.Action, rec.LoanID, rec.CopyID, rec.MemberID, rec.AdminID, rec.Detail, rec.OccurredAt).
		Suffix(returning(historyColumns))
	return get[model.HistoryRecord](ctx, t.tx, b, "history")
}
