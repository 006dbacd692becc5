package model

import (
	"time"
)

type Book struct {
	ID     int64  `json:"id" db:"id"`
	Code   string `json:"code" db:"code"`
	Title  string `json:"title" db:"title"`
	Author string `json:"author" db:"author"`
}

// Copy is one physical, independently lendable instance of a Book.
// Available is false exactly while the copy has an active loan.
type Copy struct {
	ID        int64      `json:"id" db:"id"`
	Code      string     `json:"code" db:"code"`
	BookID    int64      `json:"bookId" db:"book_id"`
	Sequence  int        `json:"sequence" db:"sequence"`
	Available bool       `json:"available" db:"available"`
	RetiredAt *time.Time `json:"retiredAt,omitempty" db:"retired_at"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

func (c Copy) Retired() bool {
	return c.RetiredAt != nil
}

// Lendable reports whether a new loan may be issued for the copy.
func (c Copy) Lendable() bool {
	return c.Available && !c.Retired()
}

type Member struct {
	ID           int64  `json:"id" db:"id"`
	MembershipID string `json:"membershipId" db:"membership_id"`
	FirstName    string `json:"firstName" db:"first_name"`
	LastName     string `json:"lastName" db:"last_name"`
	Address      string `json:"address" db:"address"`
}

type Loan struct {
	ID       int64  `json:"id" db:"id"`
	CopyID   int64  `json:"copyId" db:"copy_id"`
	MemberID int64  `json:"memberId" db:"member_id"`
	AdminID  string `json:"adminId,omitempty" db:"admin_id"`

	IssuedAt   time.Time  `json:"issuedAt" db:"issued_at"`
	DueAt      time.Time  `json:"dueAt" db:"due_at"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty" db:"returned_at"`
	// VoidedAt is set when the borrow was undone; voided loans are kept for
	// history only and never count as active.
	VoidedAt *time.Time `json:"voidedAt,omitempty" db:"voided_at"`
}

type LoanState string

const (
	LoanStateAny      LoanState = ""
	LoanStateActive   LoanState = "active"
	LoanStateReturned LoanState = "returned"
	LoanStateOverdue  LoanState = "overdue"
)

// LoanFilter selects non-voided loans. Overdue listings are ordered by due
// date ascending, every other listing by issue date descending.
type LoanFilter struct {
	MemberID int64
	AdminID  string
	State    LoanState
	// Now is the reference instant for LoanStateOverdue.
	Now time.Time
}

// LoanView is a Loan together with its state derived at a point in time.
type LoanView struct {
	Loan
	CopyCode         string  `json:"copyCode,omitempty"`
	Active           bool    `json:"active"`
	Overdue          bool    `json:"overdue"`
	DaysRemaining    int     `json:"daysRemaining"`
	OriginalLoanDays int     `json:"originalLoanDays"`
	Urgency          Urgency `json:"urgency"`
	ReturnedOnTime   *bool   `json:"returnedOnTime,omitempty"`
}

func NewLoanView(l Loan, now time.Time) LoanView {
	v := LoanView{
		Loan:             l,
		Active:           l.IsActive(),
		Overdue:          l.IsOverdue(now),
		DaysRemaining:    l.DaysRemaining(now),
		OriginalLoanDays: l.OriginalLoanDays(now.Location()),
		Urgency:          l.Urgency(now),
	}
	if l.ReturnedAt != nil {
		onTime := l.ReturnedOnTime(now.Location())
		v.ReturnedOnTime = &onTime
	}
	return v
}

type UndoKind uint8

const (
	UndoCreated UndoKind = iota + 1
	UndoReturned
)

func (k UndoKind) String() string {
	switch k {
	case UndoCreated:
		return "created"
	case UndoReturned:
		return "returned"
	default:
		return "unknown"
	}
}

// UndoEntry describes a reversible loan operation: either a loan was created
// or a loan was returned.
type UndoEntry struct {
	Kind UndoKind
	Loan Loan
}

func Created(l Loan) UndoEntry {
	return UndoEntry{Kind: UndoCreated, Loan: l}
}

func Returned(l Loan) UndoEntry {
	return UndoEntry{Kind: UndoReturned, Loan: l}
}

type UndoResult struct {
	Action Action   `json:"action"`
	Loan   LoanView `json:"loan"`
}

type Action string

const (
	ActionBorrow     Action = "BORROW"
	ActionReturn     Action = "RETURN"
	ActionUndoBorrow Action = "UNDO_BORROW"
	ActionUndoReturn Action = "UNDO_RETURN"
)

type HistoryRecord struct {
	ID         int64     `json:"id" db:"id"`
	EventUid   string    `json:"eventUid" db:"event_uid"`
	Action     Action    `json:"action" db:"action"`
	LoanID     int64     `json:"loanId" db:"loan_id"`
	CopyID     int64     `json:"copyId" db:"copy_id"`
	MemberID   int64     `json:"memberId" db:"member_id"`
	AdminID    string    `json:"adminId,omitempty" db:"admin_id"`
	Detail     string    `json:"detail" db:"detail"`
	OccurredAt time.Time `json:"occurredAt" db:"occurred_at"`
}

type Stats struct {
	Books         int `json:"books"`
	Copies        int `json:"copies"`
	Members       int `json:"members"`
	LoansIssued   int `json:"loansIssued"`
	LoansActive   int `json:"loansActive"`
	LoansReturned int `json:"loansReturned"`
	LoansOverdue  int `json:"loansOverdue"`
}

type CreateBookRequest struct {
	Code   string `json:"code" validate:"required,max=50"`
	Title  string `json:"title" validate:"required,max=200"`
	Author string `json:"author" validate:"required,max=150"`
}

type AddCopiesRequest struct {
	Count int `json:"count" validate:"min=1,max=100"`
}

type CreateMemberRequest struct {
	MembershipID string `json:"membershipId" validate:"required,max=20"`
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"required,max=100"`
	Address      string `json:"address" validate:"max=255"`
}

type CreateLoanRequest struct {
	CopyCode     string `json:"copyCode" validate:"required"`
	MembershipID string `json:"membershipId" validate:"required"`
	LoanDays     int    `json:"loanDays" validate:"min=1,max=30"`
	AdminID      string `json:"-"`
}
