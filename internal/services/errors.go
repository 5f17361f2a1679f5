package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Precondition failures. None of them leaves partial state behind.
var (
	ErrBookNotFound      = errors.New("book not found")
	ErrNoCopiesAvailable = errors.New("no available copies")
	ErrMemberNotFound    = errors.New("member does not exist")
	ErrNoActiveLoan      = errors.New("active loan does not exist")
	ErrLoanNotFound      = errors.New("loan not found")
	ErrAlreadyOverdue    = errors.New("due date has already passed")
	ErrLoanReturned      = errors.New("loan has already been returned")
	ErrLoanAlreadyActive = errors.New("member already has an active loan for this book")

	ErrAuthorNotFound  = errors.New("author not found")
	ErrAuthorHasBooks  = errors.New("author still has books")
	ErrBookHasLoans    = errors.New("book has active loans")
	ErrMemberHasLoans  = errors.New("member has active loans")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrISBNTaken       = errors.New("isbn already exists")
	ErrCopiesBelowLent = errors.New("total copies below active loans")

	// ErrLedgerInconsistent means a counter update would leave
	// 0 <= available_copies <= total_copies. The transaction is rolled back.
	ErrLedgerInconsistent = errors.New("ledger inconsistent")
)

// ValidationError rejects bad input before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// isUniqueViolation recognises duplicate-key errors from gorm's translated
// errors and from raw pgx errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
