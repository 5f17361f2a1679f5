package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/library-backend/internal/http/response"
	"github.com/yungbote/library-backend/internal/platform/apierr"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

var errNotFound = errors.New("not found")

type mapping struct {
	err     error
	status  int
	code    string
	message string
}

var errorTable = []mapping{
	{services.ErrBookNotFound, http.StatusNotFound, "book_not_found", "Not found."},
	{services.ErrNoCopiesAvailable, http.StatusBadRequest, "no_copies_available", "No available copies."},
	{services.ErrMemberNotFound, http.StatusBadRequest, "member_not_found", "Member does not exist."},
	{services.ErrNoActiveLoan, http.StatusBadRequest, "no_active_loan", "Active loan does not exist."},
	{services.ErrLoanNotFound, http.StatusNotFound, "loan_not_found", "Not found."},
	{services.ErrAlreadyOverdue, http.StatusBadRequest, "already_overdue", "Due date has already passed."},
	{services.ErrLoanReturned, http.StatusBadRequest, "loan_returned", "Loan has already been returned."},
	{services.ErrLoanAlreadyActive, http.StatusConflict, "loan_already_active", "Member already has an active loan for this book."},
	{services.ErrAuthorNotFound, http.StatusNotFound, "author_not_found", "Not found."},
	{services.ErrAuthorHasBooks, http.StatusConflict, "author_has_books", "Author still has books."},
	{services.ErrBookHasLoans, http.StatusConflict, "book_has_loans", "Book has active loans."},
	{services.ErrMemberHasLoans, http.StatusConflict, "member_has_loans", "Member has active loans."},
	{services.ErrUsernameTaken, http.StatusConflict, "username_taken", "A user with that username already exists."},
	{services.ErrISBNTaken, http.StatusConflict, "isbn_taken", "A book with this ISBN already exists."},
	{services.ErrCopiesBelowLent, http.StatusConflict, "copies_below_lent", "total_copies cannot be lower than the number of copies on loan."},
	{services.ErrLedgerInconsistent, http.StatusInternalServerError, "ledger_inconsistent", "Internal server error."},
}

// toAPIError maps a service error onto its HTTP rendering.
func toAPIError(err error) *apierr.Error {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return apierr.Wrap(err, http.StatusBadRequest, "validation_error", ve.Message).OnField(ve.Field)
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return apierr.Wrap(err, m.status, m.code, m.message)
		}
	}
	return apierr.Wrap(err, http.StatusInternalServerError, "internal_error", "Internal server error.")
}

func respondErr(c *gin.Context, log *logger.Logger, err error) {
	ae := toAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	response.Error(c, ae)
}

func badRequest(field, message string) error {
	return &services.ValidationError{Field: field, Message: message}
}

func notFound(code string) error {
	return apierr.Wrap(errNotFound, http.StatusNotFound, code, "Not found.")
}
