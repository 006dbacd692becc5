package handler

import (
	"context"

	"github.com/librarydesk/library-service/library/internal/model"
	"github.com/librarydesk/library-service/library/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	AddCopies(ctx context.Context, bookID int64, count int) ([]model.Copy, error)
	ListCopies(ctx context.Context, bookID int64, availableOnly bool) ([]model.Copy, error)
	GetCopy(ctx context.Context, code string) (model.Copy, error)
	RetireCopy(ctx context.Context, code string) (model.Copy, error)

	CreateMember(ctx context.Context, req model.CreateMemberRequest) (model.Member, error)
	GetMember(ctx context.Context, membershipID string) (model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	ListMemberLoans(ctx context.Context, membershipID string, activeOnly bool) ([]model.LoanView, error)

	CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.LoanView, error)
	ReturnLoan(ctx context.Context, loanID int64) (model.LoanView, error)
	GetLoan(ctx context.Context, loanID int64) (model.LoanView, error)
	ListLoans(ctx context.Context, filter model.LoanFilter) ([]model.LoanView, error)
	LoanHistory(ctx context.Context, loanID int64) ([]model.HistoryRecord, error)
	Undo(ctx context.Context) (model.UndoResult, error)

	Stats(ctx context.Context) (model.Stats, error)
}

var _ LibraryService = (*service.Service)(nil)
