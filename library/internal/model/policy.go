package model

import (
	"time"
)

const (
	MinLoanDays = 1
	MaxLoanDays = 30
)

type Urgency string

const (
	UrgencyOK       Urgency = "OK"
	UrgencySoon     Urgency = "SOON"
	UrgencyDue      Urgency = "DUE"
	UrgencyReturned Urgency = "RETURNED"
)

func ValidLoanDays(days int) bool {
	return days >= MinLoanDays && days <= MaxLoanDays
}

// DueDate is the agreed return deadline of a loan issued at issuedAt.
func DueDate(issuedAt time.Time, loanDays int) time.Time {
	return issuedAt.AddDate(0, 0, loanDays)
}

func (l Loan) IsActive() bool {
	return l.ReturnedAt == nil && l.VoidedAt == nil
}

func (l Loan) IsReturned() bool {
	return l.ReturnedAt != nil
}

func (l Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && now.After(l.DueAt)
}

// DaysRemaining counts calendar days from now to the due date in now's
// location. It is negative for overdue loans and 0 once the loan is returned.
func (l Loan) DaysRemaining(now time.Time) int {
	if !l.IsActive() {
		return 0
	}
	return daysBetween(now, l.DueAt, now.Location())
}

// OriginalLoanDays is the agreed loan period in calendar days of loc, the zone
// DueDate was computed in.
func (l Loan) OriginalLoanDays(loc *time.Location) int {
	return daysBetween(l.IssuedAt, l.DueAt, loc)
}

// Urgency buckets DaysRemaining: four or more days left is OK, one to three is
// SOON, due today or later is DUE.
func (l Loan) Urgency(now time.Time) Urgency {
	if !l.IsActive() {
		return UrgencyReturned
	}
	switch days := l.DaysRemaining(now); {
	case days >= 4:
		return UrgencyOK
	case days >= 1:
		return UrgencySoon
	default:
		return UrgencyDue
	}
}

// ReturnedOnTime reports whether the copy came back no later than the due date.
func (l Loan) ReturnedOnTime(loc *time.Location) bool {
	if l.ReturnedAt == nil {
		return false
	}
	return daysBetween(*l.ReturnedAt, l.DueAt, loc) >= 0
}

func daysBetween(from, to time.Time, loc *time.Location) int {
	return int(civilDate(to, loc).Sub(civilDate(from, loc)).Hours() / 24)
}

func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
