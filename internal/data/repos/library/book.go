package library

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type BookRepo interface {
	Create(dbc dbctx.Context, books []*types.Book) ([]*types.Book, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Book, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Book, error)
	List(dbc dbctx.Context, page Page) ([]*types.Book, int64, error)
	Update(dbc dbctx.Context, book *types.Book) error
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)

	// DecrementAvailable takes one copy if any is left. It reports false when
	// the book has no available copies (or does not exist).
	DecrementAvailable(dbc dbctx.Context, id uuid.UUID) (bool, error)
	// IncrementAvailable gives one copy back unless the book is already full.
	IncrementAvailable(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type bookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookRepo(db *gorm.DB, baseLog *logger.Logger) BookRepo {
	return &bookRepo{db: db, log: baseLog.With("repo", "BookRepo")}
}

func (r *bookRepo) Create(dbc dbctx.Context, books []*types.Book) ([]*types.Book, error) {
	if len(books) == 0 {
		return []*types.Book{}, nil
	}
	for _, b := range books {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
	}
	if err := conn(r.db, dbc).Omit(clause.Associations).Create(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Book, error) {
	return r.get(conn(r.db, dbc).Preload("Author"), id)
}

func (r *bookRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.Book, error) {
	return r.get(conn(r.db, dbc).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *bookRepo) get(q *gorm.DB, id uuid.UUID) (*types.Book, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var b types.Book
	if err := q.Where("id = ?", id).Limit(1).Find(&b).Error; err != nil {
		return nil, err
	}
	if b.ID == uuid.Nil {
		return nil, nil
	}
	return &b, nil
}

func (r *bookRepo) List(dbc dbctx.Context, page Page) ([]*types.Book, int64, error) {
	var total int64
	if err := conn(r.db, dbc).Model(&types.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Book
	q := conn(r.db, dbc).Preload("Author").Order("title ASC, id ASC")
	if err := paginate(q, page).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update writes catalog fields and both copy counters as given; callers keep
// the counters consistent with active loans.
func (r *bookRepo) Update(dbc dbctx.Context, book *types.Book) error {
	return conn(r.db, dbc).
		Model(&types.Book{}).
		Where("id = ?", book.ID).
		Updates(map[string]interface{}{
			"title":            book.Title,
			"author_id":        book.AuthorID,
			"isbn":             book.ISBN,
			"description":      book.Description,
			"genre":            book.Genre,
			"published_date":   book.PublishedDate,
			"total_copies":     book.TotalCopies,
			"available_copies": book.AvailableCopies,
		}).Error
}

func (r *bookRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := conn(r.db, dbc).Where("id = ?", id).Delete(&types.Book{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *bookRepo) DecrementAvailable(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := conn(r.db, dbc).
		Model(&types.Book{}).
		Where("id = ? AND available_copies > 0", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *bookRepo) IncrementAvailable(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := conn(r.db, dbc).
		Model(&types.Book{}).
		Where("id = ? AND available_copies < total_copies", id).
		UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
