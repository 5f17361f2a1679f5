package library

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type LoanFilter struct {
	BookID   *uuid.UUID
	MemberID *uuid.UUID
	Active   *bool
}

type LoanRepo interface {
	Create(dbc dbctx.Context, loans []*types.Loan) ([]*types.Loan, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Loan, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Loan, error)
	// GetWithRelations loads the loan with its book, member and member's user.
	GetWithRelations(dbc dbctx.Context, id uuid.UUID) (*types.Loan, error)
	GetActiveForUpdate(dbc dbctx.Context, bookID, memberID uuid.UUID) (*types.Loan, error)
	HasActive(dbc dbctx.Context, bookID, memberID uuid.UUID) (bool, error)
	CountActiveByBook(dbc dbctx.Context, bookID uuid.UUID) (int64, error)
	CountActiveByMember(dbc dbctx.Context, memberID uuid.UUID) (int64, error)
	List(dbc dbctx.Context, filter LoanFilter, page Page) ([]*types.Loan, int64, error)
	ListOverdue(dbc dbctx.Context, today time.Time) ([]*types.Loan, error)

	// MarkReturned flips an active loan to returned. It reports false when
	// the loan was not active.
	MarkReturned(dbc dbctx.Context, id uuid.UUID, returnDate time.Time) (bool, error)
	UpdateDueDate(dbc dbctx.Context, id uuid.UUID, dueDate time.Time) error

	DeleteReturnedByBook(dbc dbctx.Context, bookID uuid.UUID) error
	DeleteReturnedByMember(dbc dbctx.Context, memberID uuid.UUID) error
}

type loanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLoanRepo(db *gorm.DB, baseLog *logger.Logger) LoanRepo {
	return &loanRepo{db: db, log: baseLog.With("repo", "LoanRepo")}
}

func (r *loanRepo) Create(dbc dbctx.Context, loans []*types.Loan) ([]*types.Loan, error) {
	if len(loans) == 0 {
		return []*types.Loan{}, nil
	}
	for _, l := range loans {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
	}
	if err := conn(r.db, dbc).Omit(clause.Associations).Create(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Loan, error) {
	return r.first(conn(r.db, dbc).Where("id = ?", id))
}

func (r *loanRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Loan, error) {
	return r.first(conn(r.db, dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *loanRepo) GetWithRelations(dbc dbctx.Context, id uuid.UUID) (*types.Loan, error) {
	return r.first(conn(r.db, dbc).
		Preload("Book").
		Preload("Member.User").
		Where("id = ?", id))
}

func (r *loanRepo) GetActiveForUpdate(dbc dbctx.Context, bookID, memberID uuid.UUID) (*types.Loan, error) {
	return r.first(conn(r.db, dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("book_id = ? AND member_id = ? AND is_returned = ?", bookID, memberID, false).
		Order("loan_date ASC, id ASC"))
}

func (r *loanRepo) first(q *gorm.DB) (*types.Loan, error) {
	var l types.Loan
	if err := q.Limit(1).Find(&l).Error; err != nil {
		return nil, err
	}
	if l.ID == uuid.Nil {
		return nil, nil
	}
	return &l, nil
}

func (r *loanRepo) HasActive(dbc dbctx.Context, bookID, memberID uuid.UUID) (bool, error) {
	var n int64
	err := conn(r.db, dbc).Model(&types.Loan{}).
		Where("book_id = ? AND member_id = ? AND is_returned = ?", bookID, memberID, false).
		Count(&n).Error
	return n > 0, err
}

func (r *loanRepo) CountActiveByBook(dbc dbctx.Context, bookID uuid.UUID) (int64, error) {
	var n int64
	err := conn(r.db, dbc).Model(&types.Loan{}).
		Where("book_id = ? AND is_returned = ?", bookID, false).
		Count(&n).Error
	return n, err
}

func (r *loanRepo) CountActiveByMember(dbc dbctx.Context, memberID uuid.UUID) (int64, error) {
	var n int64
	err := conn(r.db, dbc).Model(&types.Loan{}).
		Where("member_id = ? AND is_returned = ?", memberID, false).
		Count(&n).Error
	return n, err
}

func (r *loanRepo) List(dbc dbctx.Context, filter LoanFilter, page Page) ([]*types.Loan, int64, error) {
	base := func() *gorm.DB {
		q := conn(r.db, dbc).Model(&types.Loan{})
		if filter.BookID != nil {
			q = q.Where("book_id = ?", *filter.BookID)
		}
		if filter.MemberID != nil {
			q = q.Where("member_id = ?", *filter.MemberID)
		}
		if filter.Active != nil {
			q = q.Where("is_returned = ?", !*filter.Active)
		}
		return q
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Loan
	q := base().Preload("Book").Preload("Member.User").Order("loan_date DESC, id ASC")
	if err := paginate(q, page).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListOverdue returns active loans due strictly before today, oldest due
// date first, with book and member.user loaded.
func (r *loanRepo) ListOverdue(dbc dbctx.Context, today time.Time) ([]*types.Loan, error) {
	var out []*types.Loan
	err := conn(r.db, dbc).
		Preload("Book").
		Preload("Member.User").
		Where("is_returned = ? AND due_date < ?", false, types.Today(today)).
		Order("due_date ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *loanRepo) MarkReturned(dbc dbctx.Context, id uuid.UUID, returnDate time.Time) (bool, error) {
	res := conn(r.db, dbc).
		Model(&types.Loan{}).
		Where("id = ? AND is_returned = ?", id, false).
		Updates(map[string]interface{}{
			"is_returned": true,
			"return_date": types.Today(returnDate),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *loanRepo) UpdateDueDate(dbc dbctx.Context, id uuid.UUID, dueDate time.Time) error {
	return conn(r.db, dbc).
		Model(&types.Loan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"due_date":   types.Today(dueDate),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *loanRepo) DeleteReturnedByBook(dbc dbctx.Context, bookID uuid.UUID) error {
	return conn(r.db, dbc).
		Where("book_id = ? AND is_returned = ?", bookID, true).
		Delete(&types.Loan{}).Error
}

func (r *loanRepo) DeleteReturnedByMember(dbc dbctx.Context, memberID uuid.UUID) error {
	return conn(r.db, dbc).
		Where("member_id = ? AND is_returned = ?", memberID, true).
		Delete(&types.Loan{}).Error
}
