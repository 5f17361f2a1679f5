package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/data/repos"
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/observability"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type LedgerConfig struct {
	DefaultPeriodDays int `yaml:"default_period_days"`
	MaxExtensionDays  int `yaml:"max_extension_days"`
}

func (c LedgerConfig) withDefaults() LedgerConfig {
	if c.DefaultPeriodDays <= 0 {
		c.DefaultPeriodDays = 14
	}
	if c.MaxExtensionDays <= 0 {
		c.MaxExtensionDays = 30
	}
	return c
}

// LoanLedger owns Book.available_copies and every Loan record. Each operation
// runs in a single transaction and either commits fully or not at all.
type LoanLedger interface {
	BorrowBook(ctx context.Context, bookID, memberID uuid.UUID) (*types.Loan, error)
	ReturnBook(ctx context.Context, bookID, memberID uuid.UUID) (*types.Loan, error)
	ExtendDueDate(ctx context.Context, loanID uuid.UUID, additionalDays int) (*types.Loan, error)
	// CheckExtendable reports the error ExtendDueDate would return for the
	// loan's current state, before any duration is considered.
	CheckExtendable(ctx context.Context, loanID uuid.UUID) error

	GetLoan(ctx context.Context, loanID uuid.UUID) (*types.Loan, error)
	ListLoans(ctx context.Context, filter repos.LoanFilter, page repos.Page) ([]*types.Loan, int64, error)
}

type loanLedger struct {
	db      *gorm.DB
	log     *logger.Logger
	books   repos.BookRepo
	members repos.MemberRepo
	loans   repos.LoanRepo
	jobs    JobService
	cfg     LedgerConfig
	now     func() time.Time
}

func NewLoanLedger(
	db *gorm.DB,
	baseLog *logger.Logger,
	books repos.BookRepo,
	members repos.MemberRepo,
	loans repos.LoanRepo,
	jobs JobService,
	cfg LedgerConfig,
	now func() time.Time,
) LoanLedger {
	if now == nil {
		now = time.Now
	}
	return &loanLedger{
		db:      db,
		log:     baseLog.With("service", "LoanLedger"),
		books:   books,
		members: members,
		loans:   loans,
		jobs:    jobs,
		cfg:     cfg.withDefaults(),
		now:     now,
	}
}

func (l *loanLedger) BorrowBook(ctx context.Context, bookID, memberID uuid.UUID) (*types.Loan, error) {
	ctx, span := observability.Tracer().Start(ctx, "LoanLedger.BorrowBook", trace.WithAttributes(
		attribute.String("book_id", bookID.String()),
		attribute.String("member_id", memberID.String()),
	))
	defer span.End()

	today := types.Today(l.now())
	var loan *types.Loan
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		book, err := l.books.GetByID(dbc, bookID)
		if err != nil {
			return err
		}
		if book == nil {
			return ErrBookNotFound
		}
		if book.AvailableCopies < 1 {
			return ErrNoCopiesAvailable
		}
		member, err := l.members.GetByID(dbc, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrMemberNotFound
		}
		active, err := l.loans.HasActive(dbc, bookID, memberID)
		if err != nil {
			return err
		}
		if active {
			return ErrLoanAlreadyActive
		}

		// The conditional decrement is what serializes concurrent borrows of
		// the last copy; the read above is only a fast path.
		took, err := l.books.DecrementAvailable(dbc, bookID)
		if err != nil {
			return err
		}
		if !took {
			return ErrNoCopiesAvailable
		}
		book.AvailableCopies--

		loan = &types.Loan{
			ID:       uuid.New(),
			BookID:   bookID,
			MemberID: memberID,
			LoanDate: today,
			DueDate:  types.AddDays(today, l.cfg.DefaultPeriodDays),
		}
		if _, err := l.loans.Create(dbc, []*types.Loan{loan}); err != nil {
			if isUniqueViolation(err) {
				return ErrLoanAlreadyActive
			}
			return err
		}
		loan.Book = book
		loan.Member = member
		return nil
	})
	l.finish(span, "borrow", err)
	if err != nil {
		return nil, err
	}
	l.log.Info("book loaned", "loan_id", loan.ID, "book_id", bookID, "member_id", memberID, "due_date", loan.DueDate.Format("2006-01-02"))

	// Committed. The confirmation is best-effort and never undoes the loan.
	loanID := loan.ID
	if _, qerr := l.jobs.Enqueue(
		dbctx.Context{Ctx: context.WithoutCancel(ctx)},
		JobTypeLoanConfirmation, "loan", &loanID,
		map[string]any{"loan_id": loanID.String()},
	); qerr != nil {
		l.log.Warn("loan confirmation enqueue failed", "loan_id", loanID, "error", qerr)
	}
	return loan, nil
}

func (l *loanLedger) ReturnBook(ctx context.Context, bookID, memberID uuid.UUID) (*types.Loan, error) {
	ctx, span := observability.Tracer().Start(ctx, "LoanLedger.ReturnBook", trace.WithAttributes(
		attribute.String("book_id", bookID.String()),
		attribute.String("member_id", memberID.String()),
	))
	defer span.End()

	today := types.Today(l.now())
	var loan *types.Loan
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		book, err := l.books.GetByID(dbc, bookID)
		if err != nil {
			return err
		}
		if book == nil {
			return ErrBookNotFound
		}
		active, err := l.loans.GetActiveForUpdate(dbc, bookID, memberID)
		if err != nil {
			return err
		}
		if active == nil {
			return ErrNoActiveLoan
		}
		flipped, err := l.loans.MarkReturned(dbc, active.ID, today)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrNoActiveLoan
		}
		gave, err := l.books.IncrementAvailable(dbc, bookID)
		if err != nil {
			return err
		}
		if !gave {
			return ErrLedgerInconsistent
		}
		book.AvailableCopies++

		active.IsReturned = true
		active.ReturnDate = &today
		active.Book = book
		loan = active
		return nil
	})
	l.finish(span, "return", err)
	if err != nil {
		if errors.Is(err, ErrLedgerInconsistent) {
			l.log.Error("return would exceed total copies", "book_id", bookID, "member_id", memberID)
		}
		return nil, err
	}
	l.log.Info("book returned", "loan_id", loan.ID, "book_id", bookID, "member_id", memberID)
	return loan, nil
}

func (l *loanLedger) ExtendDueDate(ctx context.Context, loanID uuid.UUID, additionalDays int) (*types.Loan, error) {
	ctx, span := observability.Tracer().Start(ctx, "LoanLedger.ExtendDueDate", trace.WithAttributes(
		attribute.String("loan_id", loanID.String()),
		attribute.Int("additional_days", additionalDays),
	))
	defer span.End()

	today := types.Today(l.now())
	var loan *types.Loan
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		current, err := l.loans.GetByIDForUpdate(dbc, loanID)
		if err != nil {
			return err
		}
		// Overdue wins over a bad duration.
		if err := extendable(current, today); err != nil {
			return err
		}
		if additionalDays < 1 || additionalDays > l.cfg.MaxExtensionDays {
			return invalid("additional_days", "must be between 1 and %d", l.cfg.MaxExtensionDays)
		}
		due := types.AddDays(current.DueDate, additionalDays)
		if err := l.loans.UpdateDueDate(dbc, current.ID, due); err != nil {
			return err
		}
		current.DueDate = due
		loan = current
		return nil
	})
	l.finish(span, "extend", err)
	if err != nil {
		return nil, err
	}
	l.log.Info("due date extended", "loan_id", loanID, "due_date", loan.DueDate.Format("2006-01-02"))
	return loan, nil
}

func (l *loanLedger) CheckExtendable(ctx context.Context, loanID uuid.UUID) error {
	loan, err := l.loans.GetByID(dbctx.Context{Ctx: ctx}, loanID)
	if err != nil {
		return err
	}
	return extendable(loan, types.Today(l.now()))
}

func extendable(loan *types.Loan, today time.Time) error {
	switch {
	case loan == nil:
		return ErrLoanNotFound
	case loan.IsReturned:
		return ErrLoanReturned
	case loan.DueDate.Before(today):
		return ErrAlreadyOverdue
	}
	return nil
}

func (l *loanLedger) GetLoan(ctx context.Context, loanID uuid.UUID) (*types.Loan, error) {
	loan, err := l.loans.GetWithRelations(dbctx.Context{Ctx: ctx}, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	return loan, nil
}

func (l *loanLedger) ListLoans(ctx context.Context, filter repos.LoanFilter, page repos.Page) ([]*types.Loan, int64, error) {
	return l.loans.List(dbctx.Context{Ctx: ctx}, filter, page)
}

func (l *loanLedger) finish(span trace.Span, op string, err error) {
	outcome := LedgerOutcome(err)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	observability.Current().IncLedgerOp(op, outcome)
}

// LedgerOutcome names the result of a ledger operation for metrics and spans.
func LedgerOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBookNotFound):
		return "book_not_found"
	case errors.Is(err, ErrNoCopiesAvailable):
		return "no_copies_available"
	case errors.Is(err, ErrMemberNotFound):
		return "member_not_found"
	case errors.Is(err, ErrNoActiveLoan):
		return "no_active_loan"
	case errors.Is(err, ErrLoanNotFound):
		return "loan_not_found"
	case errors.Is(err, ErrAlreadyOverdue):
		return "already_overdue"
	case errors.Is(err, ErrLoanReturned):
		return "loan_returned"
	case errors.Is(err, ErrLoanAlreadyActive):
		return "loan_already_active"
	case errors.Is(err, ErrLedgerInconsistent):
		return "ledger_inconsistent"
	case IsValidation(err):
		return "validation_error"
	default:
		return "error"
	}
}
