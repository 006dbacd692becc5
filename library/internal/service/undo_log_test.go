package service

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/model"
)

func TestUndoLog_LIFO(t *testing.T) {
	t.Parallel()
	u := NewUndoLog()
	require.True(t, u.IsEmpty())

	u.Push(model.Created(model.Loan{ID: 1}))
	u.Push(model.Returned(model.Loan{ID: 1}))
	u.Push(model.Created(model.Loan{ID: 2}))
	require.Equal(t, 3, u.Len())

	var popped []int64
	for !u.IsEmpty() {
		e, ticket, ok := u.Peek()
		require.True(t, ok)
		require.NoError(t, u.PopIf(ticket, func(got model.UndoEntry) error {
			require.Equal(t, e, got)
			popped = append(popped, got.Loan.ID)
			return nil
		}))
	}
	require.Equal(t, []int64{2, 1, 1}, popped)

	_, _, ok := u.Peek()
	require.False(t, ok)
}

func TestUndoLog_PopIf(t *testing.T) {
	t.Parallel()
	u := NewUndoLog()
	u.Push(model.Created(model.Loan{ID: 1}))
	_, stale, _ := u.Peek()
	u.Push(model.Created(model.Loan{ID: 2}))

	err := u.PopIf(stale, func(model.UndoEntry) error { return nil })
	require.ErrorIs(t, err, errUndoTopChanged)
	require.Equal(t, 2, u.Len())

	_, ticket, _ := u.Peek()
	boom := errors.New("boom")
	err = u.PopIf(ticket, func(model.UndoEntry) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, u.Len(), "failed undo keeps the entry")

	require.NoError(t, u.PopIf(ticket, func(model.UndoEntry) error { return nil }))
	e, ticket, ok := u.Peek()
	require.True(t, ok)
	require.Equal(t, int64(1), e.Loan.ID)

	// an entry that can never be reverted leaves the log with its error
	err = u.PopIf(ticket, func(model.UndoEntry) error {
		return errors.Wrap(errs.ErrCopyRetired, `copy "LIB-1"`)
	})
	require.ErrorIs(t, err, errs.ErrCopyRetired)
	require.True(t, u.IsEmpty())
}

func TestCopyLocks(t *testing.T) {
	t.Parallel()
	l := newCopyLocks()

	unlock := l.Lock(7)
	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		l.Lock(7)()
	}()

	// a different copy is independent
	l.Lock(8)()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a locked copy")
	default:
	}
	unlock()
	unlock()
	<-acquired
	require.Zero(t, l.len())
}
