package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/librarydesk/library-service/library/internal/errs"
	"github.com/librarydesk/library-service/library/internal/model"
	md "github.com/librarydesk/library-service/pkg/middleware"
	"github.com/librarydesk/library-service/pkg/validate"
	_ "github.com/librarydesk/library-service/swagger"
)

type Handler struct {
	librarySvc LibraryService
	log        *zap.Logger
}

func New(librarySrv LibraryService, log *zap.Logger) *Handler {
	return &Handler{
		librarySvc: librarySrv,
		log:        log.Named("handler"),
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPost},
		AllowHeaders:     []string{echo.HeaderContentType, md.XAdminIDHeader},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
		md.AdminID,
	)

	api.POST("/books", h.CreateBook)
	api.GET("/books", h.ListBooks)
	api.GET("/books/:bookId", h.GetBook)
	api.POST("/books/:bookId/copies", h.AddCopies)
	api.GET("/books/:bookId/copies", h.ListCopies)

	api.GET("/copies/:code", h.GetCopy)
	api.POST("/copies/:code/retire", h.RetireCopy)

	api.POST("/members", h.CreateMember)
	api.GET("/members", h.ListMembers)
	api.GET("/members/:membershipId", h.GetMember)
	api.GET("/members/:membershipId/loans", h.ListMemberLoans)

	api.POST("/loans", h.CreateLoan)
	api.GET("/loans", h.ListLoans)
	api.GET("/loans/:loanId", h.GetLoan)
	api.POST("/loans/:loanId/return", h.ReturnLoan)
	api.GET("/loans/:loanId/history", h.LoanHistory)

	api.POST("/undo", h.Undo)
	api.GET("/stats", h.Stats)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps domain errors onto HTTP statuses.
func (h *Handler) httpError(err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidParameter):
		code = http.StatusBadRequest
	case errors.Is(err, errs.ErrCopyUnavailable),
		errors.Is(err, errs.ErrCopyRetired),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrUndoStale),
		errors.Is(err, errs.ErrDuplicate):
		code = http.StatusConflict
	case errors.Is(err, errs.ErrConcurrencyConflict):
		code = http.StatusServiceUnavailable
	default:
		h.log.Error("internal", zap.Error(err))
	}
	return echo.NewHTTPError(code, err.Error())
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func idParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" is invalid")
	}
	return id, nil
}

func boolQuery(c echo.Context, name string) (bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, echo.NewHTTPError(http.StatusBadRequest, name+" is invalid")
	}
	return b, nil
}

// CreateBook godoc
// @Summary      register a book
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        book body model.CreateBookRequest true "book"
// @Success      201 {object} model.Book
// @Failure      400,409 {object} echo.HTTPError
// @Router       /books [post]
func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	book, err := h.librarySvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) ListBooks(c echo.Context) error {
	books, err := h.librarySvc.ListBooks(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := idParam(c, "bookId")
	if err != nil {
		return err
	}
	book, err := h.librarySvc.GetBook(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

// AddCopies godoc
// @Summary      add physical copies of a book
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        bookId path int true "book id"
// @Param        copies body model.AddCopiesRequest true "how many"
// @Success      201 {array} model.Copy
// @Failure      400,404 {object} echo.HTTPError
// @Router       /books/{bookId}/copies [post]
func (h *Handler) AddCopies(c echo.Context) error {
	id, err := idParam(c, "bookId")
	if err != nil {
		return err
	}
	var req model.AddCopiesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	copies, err := h.librarySvc.AddCopies(c.Request().Context(), id, req.Count)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, copies)
}

func (h *Handler) ListCopies(c echo.Context) error {
	id, err := idParam(c, "bookId")
	if err != nil {
		return err
	}
	available, err := boolQuery(c, "available")
	if err != nil {
		return err
	}
	copies, err := h.librarySvc.ListCopies(c.Request().Context(), id, available)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, copies)
}

func (h *Handler) GetCopy(c echo.Context) error {
	cp, err := h.librarySvc.GetCopy(c.Request().Context(), c.Param("code"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, cp)
}

func (h *Handler) RetireCopy(c echo.Context) error {
	cp, err := h.librarySvc.RetireCopy(c.Request().Context(), c.Param("code"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, cp)
}

func (h *Handler) CreateMember(c echo.Context) error {
	var req model.CreateMemberRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	m, err := h.librarySvc.CreateMember(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMembers(c echo.Context) error {
	members, err := h.librarySvc.ListMembers(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, members)
}

func (h *Handler) GetMember(c echo.Context) error {
	m, err := h.librarySvc.GetMember(c.Request().Context(), c.Param("membershipId"))
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMemberLoans(c echo.Context) error {
	active, err := boolQuery(c, "active")
	if err != nil {
		return err
	}
	loans, err := h.librarySvc.ListMemberLoans(c.Request().Context(), c.Param("membershipId"), active)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// CreateLoan godoc
// @Summary      lend a copy to a member
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        X-Admin-Id header string false "operator id"
// @Param        loan body model.CreateLoanRequest true "loan"
// @Success      201 {object} model.LoanView
// @Failure      400,404,409,503 {object} echo.HTTPError
// @Router       /loans [post]
func (h *Handler) CreateLoan(c echo.Context) error {
	var req model.CreateLoanRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.AdminID = md.GetAdminID(c)
	loan, err := h.librarySvc.CreateLoan(c.Request().Context(), req)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, loan)
}

// ListLoans godoc
// @Summary      list loans
// @Description  overdue=true lists every overdue loan by due date, otherwise newest first
// @Tags         loans
// @Produce      json
// @Param        active query bool false "active only"
// @Param        overdue query bool false "overdue only"
// @Param        admin query string false "issued by operator"
// @Success      200 {array} model.LoanView
// @Router       /loans [get]
func (h *Handler) ListLoans(c echo.Context) error {
	active, err := boolQuery(c, "active")
	if err != nil {
		return err
	}
	overdue, err := boolQuery(c, "overdue")
	if err != nil {
		return err
	}
	filter := model.LoanFilter{AdminID: c.QueryParam("admin")}
	switch {
	case overdue:
		filter.State = model.LoanStateOverdue
	case active:
		filter.State = model.LoanStateActive
	}
	loans, err := h.librarySvc.ListLoans(c.Request().Context(), filter)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) GetLoan(c echo.Context) error {
	id, err := idParam(c, "loanId")
	if err != nil {
		return err
	}
	loan, err := h.librarySvc.GetLoan(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

// ReturnLoan godoc
// @Summary      return a lent copy
// @Tags         loans
// @Produce      json
// @Param        loanId path int true "loan id"
// @Success      200 {object} model.LoanView
// @Failure      404,409,503 {object} echo.HTTPError
// @Router       /loans/{loanId}/return [post]
func (h *Handler) ReturnLoan(c echo.Context) error {
	id, err := idParam(c, "loanId")
	if err != nil {
		return err
	}
	loan, err := h.librarySvc.ReturnLoan(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) LoanHistory(c echo.Context) error {
	id, err := idParam(c, "loanId")
	if err != nil {
		return err
	}
	records, err := h.librarySvc.LoanHistory(c.Request().Context(), id)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, records)
}

// Undo godoc
// @Summary      revert the latest loan or return
// @Tags         loans
// @Produce      json
// @Success      200 {object} model.UndoResult
// @Failure      409,503 {object} echo.HTTPError
// @Router       /undo [post]
func (h *Handler) Undo(c echo.Context) error {
	res, err := h.librarySvc.Undo(c.Request().Context())
	if errors.Is(err, errs.ErrNothingToUndo) {
		return c.JSON(http.StatusOK, echo.Map{"message": "nothing to undo"})
	}
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.librarySvc.Stats(c.Request().Context())
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}
