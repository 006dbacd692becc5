package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/model"
)

// memoryRepository keeps the whole catalog in process memory. Transactions are
// serialized by a single lock and rolled back by restoring a snapshot, which
// gives the same all-or-nothing behaviour as the postgres repository.
type memoryRepository struct {
	mu    sync.RWMutex
	state memState
	log   *zap.Logger
}

var _ Repository = (*memoryRepository)(nil)

func NewMemoryRepository(log *zap.Logger) *memoryRepository {
	return &memoryRepository{
		state: newMemState(),
		log:   log.Named("repo"),
	}
}

type memIDs struct {
	book, copy, member, loan, history int64
}

type memState struct {
	ids          memIDs
	books        map[int64]model.Book
	bookByCode   map[string]int64
	copies       map[int64]model.Copy
	copyByCode   map[string]int64
	members      map[int64]model.Member
	memberByCode map[string]int64
	loans        map[int64]model.Loan
	history      []model.HistoryRecord
}

func newMemState() memState {
	return memState{
		books:        make(map[int64]model.Book),
		bookByCode:   make(map[string]int64),
		copies:       make(map[int64]model.Copy),
		copyByCode:   make(map[string]int64),
		members:      make(map[int64]model.Member),
		memberByCode: make(map[string]int64),
		loans:        make(map[int64]model.Loan),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (s *memState) clone() memState {
	return memState{
		ids:          s.ids,
		books:        cloneMap(s.books),
		bookByCode:   cloneMap(s.bookByCode),
		copies:       cloneMap(s.copies),
		copyByCode:   cloneMap(s.copyByCode),
		members:      cloneMap(s.members),
		memberByCode: cloneMap(s.memberByCode),
		loans:        cloneMap(s.loans),
		history:      append([]model.HistoryRecord(nil), s.history...),
	}
}

func (r *memoryRepository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.inTx(ctx, func(s *memState) error {
		return fn(&memoryTx{s: s})
	})
}

func (r *memoryRepository) inTx(ctx context.Context, fn func(s *memState) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	backup := r.state.clone()
	defer func() {
		if p := recover(); p != nil {
			r.state = backup
			panic(p)
		}
	}()
	if err := fn(&r.state); err != nil {
		r.state = backup
		return err
	}
	return nil
}

func (r *memoryRepository) read(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	return r.mu.RUnlock, nil
}

func (r *memoryRepository) CreateBook(ctx context.Context, book model.Book) (model.Book, error) {
	err := r.inTx(ctx, func(s *memState) error {
		if _, ok := s.bookByCode[book.Code]; ok {
			return errors.Wrapf(errs.ErrDuplicate, "book %q", book.Code)
		}
		s.ids.book++
		book.ID = s.ids.book
		s.books[book.ID] = book
		s.bookByCode[book.Code] = book.ID
		return nil
	})
	if err != nil {
		return model.Book{}, err
	}
	return book, nil
}

func (r *memoryRepository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return model.Book{}, err
	}
	defer unlock()
	return r.state.book(id)
}

func (s *memState) book(id int64) (model.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %d", id)
	}
	return b, nil
}

func (r *memoryRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	books := make([]model.Book, 0, len(r.state.books))
	for _, b := range r.state.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID < books[j].ID
	})
	return books, nil
}

func (r *memoryRepository) AddCopies(ctx context.Context, bookID int64, count int, now time.Time) ([]model.Copy, error) {
	var created []model.Copy
	err := r.inTx(ctx, func(s *memState) error {
		book, err := s.book(bookID)
		if err != nil {
			return err
		}
		maxSeq := 0
		for _, c := range s.copies {
			if c.BookID == bookID && c.Sequence > maxSeq {
				maxSeq = c.Sequence
			}
		}
		for i := 1; i <= count; i++ {
			seq := maxSeq + i
			code := fmt.Sprintf("%s-%d", book.Code, seq)
			if _, ok := s.copyByCode[code]; ok {
				return errors.Wrapf(errs.ErrDuplicate, "copy %q", code)
			}
			s.ids.copy++
			c := model.Copy{
				ID:        s.ids.copy,
				Code:      code,
				BookID:    bookID,
				Sequence:  seq,
				Available: true,
				CreatedAt: now,
			}
			s.copies[c.ID] = c
			s.copyByCode[code] = c.ID
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *memoryRepository) GetCopy(ctx context.Context, id int64) (model.Copy, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return model.Copy{}, err
	}
	defer unlock()

	c, ok := r.state.copies[id]
	if !ok {
		return model.Copy{}, errors.Wrapf(errs.ErrNotFound, "copy %d", id)
	}
	return c, nil
}

func (r *memoryRepository) GetCopyByCode(ctx context.Context, code string) (model.Copy, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return model.Copy{}, err
	}
	defer unlock()

	id, ok := r.state.copyByCode[code]
	if !ok {
		return model.Copy{}, errors.Wrapf(errs.ErrNotFound, "copy %q", code)
	}
	return r.state.copies[id], nil
}

func (r *memoryRepository) ListCopies(ctx context.Context, bookID int64, availableOnly bool) ([]model.Copy, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	copies := make([]model.Copy, 0)
	for _, c := range r.state.copies {
		if c.BookID != bookID || (availableOnly && !c.Lendable()) {
			continue
		}
		copies = append(copies, c)
	}
	sort.Slice(copies, func(i, j int) bool { return copies[i].Sequence < copies[j].Sequence })
	return copies, nil
}

func (r *memoryRepository) CreateMember(ctx context.Context, member model.Member) (model.Member, error) {
	err := r.inTx(ctx, func(s *memState) error {
		if _, ok := s.memberByCode[member.MembershipID]; ok {
			return errors.Wrapf(errs.ErrDuplicate, "member %q", member.MembershipID)
		}
		s.ids.member++
		member.ID = s.ids.member
		s.members[member.ID] = member
		s.memberByCode[member.MembershipID] = member.ID
		return nil
	})
	if err != nil {
		return model.Member{}, err
	}
	return member, nil
}

func (r *memoryRepository) GetMember(ctx context.Context, membershipID string) (model.Member, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return model.Member{}, err
	}
	defer unlock()
	return r.state.member(membershipID)
}

func (s *memState) member(membershipID string) (model.Member, error) {
	id, ok := s.memberByCode[membershipID]
	if !ok {
		return model.Member{}, errors.Wrapf(errs.ErrNotFound, "member %q", membershipID)
	}
	return s.members[id], nil
}

func (r *memoryRepository) ListMembers(ctx context.Context) ([]model.Member, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	members := make([]model.Member, 0, len(r.state.members))
	for _, m := range r.state.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
	return members, nil
}

func (r *memoryRepository) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return model.Loan{}, err
	}
	defer unlock()
	return r.state.loan(id)
}

func (s *memState) loan(id int64) (model.Loan, error) {
	l, ok := s.loans[id]
	if !ok {
		return model.Loan{}, errors.Wrapf(errs.ErrNotFound, "loan %d", id)
	}
	return l, nil
}

func matchLoan(l model.Loan, f model.LoanFilter) bool {
	if l.VoidedAt != nil {
		return false
	}
	if f.MemberID != 0 && l.MemberID != f.MemberID {
		return false
	}
	if f.AdminID != "" && l.AdminID != f.AdminID {
		return false
	}
	switch f.State {
	case model.LoanStateActive:
		return l.ReturnedAt == nil
	case model.LoanStateReturned:
		return l.ReturnedAt != nil
	case model.LoanStateOverdue:
		return l.ReturnedAt == nil && l.DueAt.Before(f.Now)
	}
	return true
}

func (r *memoryRepository) ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.Loan, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	loans := make([]model.Loan, 0)
	for _, l := range r.state.loans {
		if matchLoan(l, filter) {
			loans = append(loans, l)
		}
	}
	if filter.State == model.LoanStateOverdue {
		sort.Slice(loans, func(i, j int) bool {
			if !loans[i].DueAt.Equal(loans[j].DueAt) {
				return loans[i].DueAt.Before(loans[j].DueAt)
			}
			return loans[i].ID < loans[j].ID
		})
	} else {
		sort.Slice(loans, func(i, j int) bool {
			if !loans[i].IssuedAt.Equal(loans[j].IssuedAt) {
				return loans[i].IssuedAt.After(loans[j].IssuedAt)
			}
			return loans[i].ID > loans[j].ID
		})
	}
	return loans, nil
}

func (r *memoryRepository) ListHistory(ctx context.Context, loanID int64) ([]model.HistoryRecord, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	records := make([]model.HistoryRecord, 0)
	for _, rec := range r.state.history {
		if rec.LoanID == loanID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *memoryRepository) CountBooks(ctx context.Context) (int, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return len(r.state.books), nil
}

func (r *memoryRepository) CountCopies(ctx context.Context) (int, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return len(r.state.copies), nil
}

func (r *memoryRepository) CountMembers(ctx context.Context) (int, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return len(r.state.members), nil
}

func (r *memoryRepository) CountLoans(ctx context.Context, filter model.LoanFilter) (int, error) {
	unlock, err := r.read(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	n := 0
	for _, l := range r.state.loans {
		if matchLoan(l, filter) {
			n++
		}
	}
	return n, nil
}

type memoryTx struct {
	s *memState
}

func (t *memoryTx) CopyForUpdate(_ context.Context, id int64) (model.Copy, error) {
	c, ok := t.s.copies[id]
	if !ok {
		return model.Copy{}, errors.Wrapf(errs.ErrNotFound, "copy %d", id)
	}
	return c, nil
}

func (t *memoryTx) LoanForUpdate(_ context.Context, id int64) (model.Loan, error) {
	return t.s.loan(id)
}

func (t *memoryTx) MemberByMembershipID(_ context.Context, membershipID string) (model.Member, error) {
	return t.s.member(membershipID)
}

func (t *memoryTx) ActiveLoanByCopy(_ context.Context, copyID int64) (model.Loan, error) {
	for _, l := range t.s.loans {
		if l.CopyID == copyID && l.IsActive() {
			return l, nil
		}
	}
	return model.Loan{}, errors.Wrapf(errs.ErrNotFound, "active loan of copy %d", copyID)
}

func (t *memoryTx) InsertLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	if _, ok := t.s.copies[loan.CopyID]; !ok {
		return model.Loan{}, errors.Wrapf(errs.ErrNotFound, "copy %d", loan.CopyID)
	}
	if _, ok := t.s.members[loan.MemberID]; !ok {
		return model.Loan{}, errors.Wrapf(errs.ErrNotFound, "member %d", loan.MemberID)
	}
	if _, err := t.ActiveLoanByCopy(ctx, loan.CopyID); err == nil {
		return model.Loan{}, errors.Wrap(errs.ErrCopyUnavailable, "copy already has an active loan")
	}
	t.s.ids.loan++
	loan.ID = t.s.ids.loan
	loan.ReturnedAt, loan.VoidedAt = nil, nil
	t.s.loans[loan.ID] = loan
	return loan, nil
}

func (t *memoryTx) SetLoanReturned(ctx context.Context, loanID int64, at *time.Time) error {
	l, err := t.s.loan(loanID)
	if err != nil {
		return err
	}
	if at == nil && l.VoidedAt == nil {
		if active, err := t.ActiveLoanByCopy(ctx, l.CopyID); err == nil && active.ID != loanID {
			return errors.Wrap(errs.ErrCopyUnavailable, "copy already has an active loan")
		}
	}
	if at != nil {
		ts := *at
		at = &ts
	}
	l.ReturnedAt = at
	t.s.loans[loanID] = l
	return nil
}

func (t *memoryTx) VoidLoan(_ context.Context, loanID int64, at time.Time) error {
	l, err := t.s.loan(loanID)
	if err != nil {
		return err
	}
	l.VoidedAt = &at
	t.s.loans[loanID] = l
	return nil
}

func (t *memoryTx) SetCopyAvailable(ctx context.Context, copyID int64, available bool) error {
	c, err := t.CopyForUpdate(ctx, copyID)
	if err != nil {
		return err
	}
	c.Available = available
	t.s.copies[copyID] = c
	return nil
}

func (t *memoryTx) RetireCopy(ctx context.Context, copyID int64, at time.Time) error {
	c, err := t.CopyForUpdate(ctx, copyID)
	if err != nil {
		return err
	}
	c.RetiredAt = &at
	t.s.copies[copyID] = c
	return nil
}

func (t *memoryTx) InsertHistory(_ context.Context, rec model.HistoryRecord) (model.HistoryRecord, error) {
	t.s.ids.history++
	rec.ID = t.s.ids.history
	t.s.history = append(t.s.history, rec)
	return rec, nil
}
