package repository

import (
	"context"
	"time"

	"github.com/librarydesk/library-service/library/internal/model"
)

type Repository interface {
	Catalog
	Members
	Loans
	Counter

	// WithTx runs fn in a single transaction. Any error returned by fn rolls
	// every write back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type Catalog interface {
	CreateBook(ctx context.Context, book model.Book) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	// AddCopies appends count copies coded "<book code>-<n>" where n continues
	// after the highest sequence the book already has.
	AddCopies(ctx context.Context, bookID int64, count int, now time.Time) ([]model.Copy, error)
	GetCopy(ctx context.Context, id int64) (model.Copy, error)
	GetCopyByCode(ctx context.Context, code string) (model.Copy, error)
	ListCopies(ctx context.Context, bookID int64, availableOnly bool) ([]model.Copy, error)
}

type Members interface {
	CreateMember(ctx context.Context, member model.Member) (model.Member, error)
	GetMember(ctx context.Context, membershipID string) (model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
}

type Loans interface {
	GetLoan(ctx context.Context, id int64) (model.Loan, error)
	ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error)
	ListHistory(ctx context.Context, loanID int64) ([]model.HistoryRecord, error)
}

type Counter interface {
	CountBooks(ctx context.Context) (int, error)
	CountCopies(ctx context.Context) (int, error)
	CountMembers(ctx context.Context) (int, error)
	CountLoans(ctx context.Context, filter model.LoanFilter) (int, error)
}

// Tx is the transactional view used by the loan engine. The *ForUpdate
// readers lock the row until the transaction ends.
type Tx interface {
	CopyForUpdate(ctx context.Context, id int64) (model.Copy, error)
	LoanForUpdate(ctx context.Context, id int64) (model.Loan, error)
	MemberByMembershipID(ctx context.Context, membershipID string) (model.Member, error)
	// ActiveLoanByCopy returns errs.ErrNotFound when the copy is not on loan.
	ActiveLoanByCopy(ctx context.Context, copyID int64) (model.Loan, error)

	InsertLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	// SetLoanReturned stores at as the return time; nil makes the loan active again.
	SetLoanReturned(ctx context.Context, loanID int64, at *time.Time) error
	VoidLoan(ctx context.Context, loanID int64, at time.Time) error
	SetCopyAvailable(ctx context.Context, copyID int64, available bool) error
	RetireCopy(ctx context.Context, copyID int64, at time.Time) error
	InsertHistory(ctx context.Context, rec model.HistoryRecord) (model.HistoryRecord, error)
}
