package model_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/librarydesk/library-service/library/internal/model"
	"github.com/stretchr/testify/require"
)

func TestDueDate(t *testing.T) {
	t.Parallel()
	issued := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		days int
		want time.Time
	}{
		{name: "one day", days: 1, want: time.Date(2024, 3, 11, 15, 30, 0, 0, time.UTC)},
		{name: "five days", days: 5, want: time.Date(2024, 3, 15, 15, 30, 0, 0, time.UTC)},
		{name: "crosses month", days: 30, want: time.Date(2024, 4, 9, 15, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, model.DueDate(issued, tt.days))
		})
	}
}

func TestValidLoanDays(t *testing.T) {
	t.Parallel()
	require.False(t, model.ValidLoanDays(0))
	require.True(t, model.ValidLoanDays(1))
	require.True(t, model.ValidLoanDays(30))
	require.False(t, model.ValidLoanDays(31))
	require.False(t, model.ValidLoanDays(-3))
}

func TestLoan_DerivedState(t *testing.T) {
	t.Parallel()
	issued := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	active := model.Loan{ID: 1, IssuedAt: issued, DueAt: model.DueDate(issued, 5)}
	returnedAt := issued.Add(48 * time.Hour)
	returned := active
	returned.ReturnedAt = &returnedAt

	tests := []struct {
		name          string
		loan          model.Loan
		now           time.Time
		wantActive    bool
		wantOverdue   bool
		wantRemaining int
		wantUrgency   model.Urgency
	}{
		{
			name:          "fresh loan",
			loan:          active,
			now:           issued,
			wantActive:    true,
			wantRemaining: 5,
			wantUrgency:   model.UrgencyOK,
		},
		{
			name:          "three days left",
			loan:          active,
			now:           issued.Add(2 * 24 * time.Hour),
			wantActive:    true,
			wantRemaining: 3,
			wantUrgency:   model.UrgencySoon,
		},
		{
			name:          "due instant is not overdue",
			loan:          active,
			now:           active.DueAt,
			wantActive:    true,
			wantRemaining: 0,
			wantUrgency:   model.UrgencyDue,
		},
		{
			name:          "one second late is overdue but same calendar day",
			loan:          active,
			now:           active.DueAt.Add(time.Second),
			wantActive:    true,
			wantOverdue:   true,
			wantRemaining: 0,
			wantUrgency:   model.UrgencyDue,
		},
		{
			name:          "late past midnight counts a full day",
			loan:          active,
			now:           time.Date(2024, 3, 16, 0, 0, 1, 0, time.UTC),
			wantActive:    true,
			wantOverdue:   true,
			wantRemaining: -1,
			wantUrgency:   model.UrgencyDue,
		},
		{
			name:          "a week late stays negative",
			loan:          active,
			now:           active.DueAt.Add(7 * 24 * time.Hour),
			wantActive:    true,
			wantOverdue:   true,
			wantRemaining: -7,
			wantUrgency:   model.UrgencyDue,
		},
		{
			name:          "returned loan reports zero",
			loan:          returned,
			now:           active.DueAt.Add(7 * 24 * time.Hour),
			wantRemaining: 0,
			wantUrgency:   model.UrgencyReturned,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.wantActive, tt.loan.IsActive())
			require.Equal(t, tt.wantOverdue, tt.loan.IsOverdue(tt.now))
			require.Equal(t, tt.wantRemaining, tt.loan.DaysRemaining(tt.now))
			require.Equal(t, tt.wantUrgency, tt.loan.Urgency(tt.now))
			require.Equal(t, 5, tt.loan.OriginalLoanDays(tt.now.Location()))
		})
	}
}

func TestLoan_DaysRemainingUsesCivilDates(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC-3", -3*60*60)
	issued := time.Date(2024, 3, 10, 23, 0, 0, 0, loc)
	loan := model.Loan{IssuedAt: issued, DueAt: model.DueDate(issued, 1).UTC()}

	// 23:30 local on the issue day: the due date is tomorrow.
	require.Equal(t, 1, loan.DaysRemaining(time.Date(2024, 3, 10, 23, 30, 0, 0, loc)))
	// 00:10 local the next day: due today, the deadline is still 23h away.
	require.Equal(t, 0, loan.DaysRemaining(time.Date(2024, 3, 11, 0, 10, 0, 0, loc)))
}

func TestLoan_OriginalLoanDaysAcrossDSTChange(t *testing.T) {
	t.Parallel()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// clocks go forward on 2024-03-10, so the one-day period is 23h long
	issued := time.Date(2024, 3, 9, 19, 30, 0, 0, ny)
	loan := model.Loan{IssuedAt: issued.UTC(), DueAt: model.DueDate(issued, 1).UTC()}

	require.Equal(t, 1, loan.OriginalLoanDays(ny))
	require.Equal(t, 0, loan.OriginalLoanDays(time.UTC))
	require.Equal(t, 1, model.NewLoanView(loan, issued.Add(time.Hour)).OriginalLoanDays)
}

func TestLoan_ReturnedOnTime(t *testing.T) {
	t.Parallel()
	issued := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	loan := model.Loan{IssuedAt: issued, DueAt: model.DueDate(issued, 7)}

	sameDayLate := loan.DueAt.Add(3 * time.Hour)
	loan.ReturnedAt = &sameDayLate
	require.True(t, loan.ReturnedOnTime(time.UTC))

	nextDay := loan.DueAt.Add(24 * time.Hour)
	loan.ReturnedAt = &nextDay
	require.False(t, loan.ReturnedOnTime(time.UTC))

	view := model.NewLoanView(loan, nextDay)
	require.NotNil(t, view.ReturnedOnTime)
	require.False(t, *view.ReturnedOnTime)
	require.False(t, view.Active)
	require.Equal(t, 7, view.OriginalLoanDays)
}
