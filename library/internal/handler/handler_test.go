package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/handler"
	"github.com/librarydesk/library-service/library/internal/model"
	md "github.com/librarydesk/library-service/pkg/middleware"
	"github.com/librarydesk/library-service/pkg/validate"

	service_mocks "github.com/librarydesk/library-service/library/internal/handler/mocks"
)

type response struct {
	expectedCode int
	expectedBody string
}

func newServer(t *testing.T, svc *service_mocks.MockLibraryService) *echo.Echo {
	t.Helper()
	h := handler.New(svc, zap.NewExample().Named("test"))
	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.POST("/books", h.CreateBook)
	e.GET("/books/:bookId", h.GetBook)
	e.POST("/loans", h.CreateLoan, md.AdminID)
	e.GET("/loans", h.ListLoans)
	e.POST("/loans/:loanId/return", h.ReturnLoan)
	e.POST("/undo", h.Undo)
	return e
}

func do(e *echo.Echo, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, http.NoBody)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	return w
}

func TestHandler_CreateBook(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok",
			body: `{"code":"LIB","title":"Dune","author":"Frank Herbert"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBook(context.Background(), model.CreateBookRequest{Code: "LIB", Title: "Dune", Author: "Frank Herbert"}).
					Return(model.Book{ID: 1, Code: "LIB", Title: "Dune", Author: "Frank Herbert"}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"id":1,"code":"LIB","title":"Dune","author":"Frank Herbert"}`,
			},
		},
		{
			name: "err. duplicate code",
			body: `{"code":"LIB","title":"Dune","author":"Frank Herbert"}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBook(context.Background(), gomock.Any()).
					Return(model.Book{}, errors.Wrap(errs.ErrDuplicate, `book "LIB"`))
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"book \"LIB\": already exists"}`,
			},
		},
		{
			name:         "err. malformed body",
			body:         `{"code":`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			tt.mockBehavior(svc)

			w := do(newServer(t, svc), http.MethodPost, "/books", tt.body, nil)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_GetBook(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockLibraryService(c)
	svc.EXPECT().
		GetBook(context.Background(), int64(7)).
		Return(model.Book{}, errors.Wrap(errs.ErrNotFound, "book 7"))
	e := newServer(t, svc)

	w := do(e, http.MethodGet, "/books/7", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, `{"message":"book 7: not found"}`, strings.Trim(w.Body.String(), "\n"))

	w = do(e, http.MethodGet, "/books/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, `{"message":"bookId is invalid"}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_CreateLoan(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLibraryService)

	var tests = []struct {
		name         string
		body         string
		adminID      string
		mockBehavior mockBehavior
		wantCode     int
		wantBody     string
	}{
		{
			name:    "ok. operator header is passed through",
			body:    `{"copyCode":"LIB-1","membershipId":"87654321","loanDays":7}`,
			adminID: "desk-1",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateLoan(context.Background(), model.CreateLoanRequest{
						CopyCode: "LIB-1", MembershipID: "87654321", LoanDays: 7, AdminID: "desk-1",
					}).
					Return(model.LoanView{Loan: model.Loan{ID: 1}, Active: true, DaysRemaining: 7}, nil)
			},
			wantCode: http.StatusCreated,
		},
		{
			name:         "err. loan days out of range",
			body:         `{"copyCode":"LIB-1","membershipId":"87654321","loanDays":31}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			wantCode:     http.StatusBadRequest,
		},
		{
			name: "err. copy on loan",
			body: `{"copyCode":"LIB-1","membershipId":"87654321","loanDays":7}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateLoan(gomock.Any(), gomock.Any()).
					Return(model.LoanView{}, errors.Wrap(errs.ErrCopyUnavailable, `copy "LIB-1" is on loan`))
			},
			wantCode: http.StatusConflict,
			wantBody: `{"message":"copy \"LIB-1\" is on loan: copy is not available"}`,
		},
		{
			name: "err. retired copy",
			body: `{"copyCode":"LIB-1","membershipId":"87654321","loanDays":7}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateLoan(gomock.Any(), gomock.Any()).
					Return(model.LoanView{}, errs.ErrCopyRetired)
			},
			wantCode: http.StatusConflict,
			wantBody: `{"message":"copy is retired"}`,
		},
		{
			name: "err. conflict",
			body: `{"copyCode":"LIB-1","membershipId":"87654321","loanDays":7}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateLoan(gomock.Any(), gomock.Any()).
					Return(model.LoanView{}, errs.ErrConcurrencyConflict)
			},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name: "err. internal",
			body: `{"copyCode":"LIB-1","membershipId":"87654321","loanDays":7}`,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateLoan(gomock.Any(), gomock.Any()).
					Return(model.LoanView{}, errors.New("db internal"))
			},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"message":"db internal"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			tt.mockBehavior(svc)

			headers := map[string]string{}
			if tt.adminID != "" {
				headers[md.XAdminIDHeader] = tt.adminID
			}
			w := do(newServer(t, svc), http.MethodPost, "/loans", tt.body, headers)

			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_ListLoans(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		query  string
		filter model.LoanFilter
	}{
		{name: "all", query: "", filter: model.LoanFilter{}},
		{name: "active", query: "?active=true", filter: model.LoanFilter{State: model.LoanStateActive}},
		{name: "overdue wins", query: "?active=true&overdue=true", filter: model.LoanFilter{State: model.LoanStateOverdue}},
		{name: "by operator", query: "?admin=desk-1", filter: model.LoanFilter{AdminID: "desk-1"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			svc.EXPECT().ListLoans(context.Background(), tt.filter).Return([]model.LoanView{}, nil)

			w := do(newServer(t, svc), http.MethodGet, "/loans"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, `[]`, strings.Trim(w.Body.String(), "\n"))
		})
	}

	c := gomock.NewController(t)
	defer c.Finish()
	w := do(newServer(t, service_mocks.NewMockLibraryService(c)), http.MethodGet, "/loans?active=maybe", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ReturnLoan(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockLibraryService(c)
	svc.EXPECT().
		ReturnLoan(context.Background(), int64(3)).
		Return(model.LoanView{}, errors.Wrap(errs.ErrAlreadyReturned, "loan 3"))

	w := do(newServer(t, svc), http.MethodPost, "/loans/3/return", "", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, `{"message":"loan 3: loan already returned"}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_Undo(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockLibraryService(c)
	gomock.InOrder(
		svc.EXPECT().Undo(context.Background()).
			Return(model.UndoResult{Action: model.ActionUndoBorrow, Loan: model.LoanView{Loan: model.Loan{ID: 5}}}, nil),
		svc.EXPECT().Undo(context.Background()).
			Return(model.UndoResult{}, errs.ErrNothingToUndo),
		svc.EXPECT().Undo(context.Background()).
			Return(model.UndoResult{}, errors.Wrap(errs.ErrUndoStale, "loan 5 is not returned")),
	)
	e := newServer(t, svc)

	w := do(e, http.MethodPost, "/undo", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"action":"UNDO_BORROW"`)

	w = do(e, http.MethodPost, "/undo", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"message":"nothing to undo"}`, strings.Trim(w.Body.String(), "\n"))

	w = do(e, http.MethodPost, "/undo", "", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, `{"message":"loan 5 is not returned: undo entry no longer applies"}`, strings.Trim(w.Body.String(), "\n"))
}
