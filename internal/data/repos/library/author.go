package library

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type AuthorRepo interface {
	Create(dbc dbctx.Context, authors []*types.Author) ([]*types.Author, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Author, error)
	List(dbc dbctx.Context, page Page) ([]*types.Author, int64, error)
	Update(dbc dbctx.Context, author *types.Author) error
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
	CountBooks(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type authorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuthorRepo(db *gorm.DB, baseLog *logger.Logger) AuthorRepo {
	return &authorRepo{db: db, log: baseLog.With("repo", "AuthorRepo")}
}

func (r *authorRepo) Create(dbc dbctx.Context, authors []*types.Author) ([]*types.Author, error) {
	if len(authors) == 0 {
		return []*types.Author{}, nil
	}
	for _, a := range authors {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
	}
	if err := conn(r.db, dbc).Create(&authors).Error; err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *authorRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Author, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var a types.Author
	if err := conn(r.db, dbc).Where("id = ?", id).Limit(1).Find(&a).Error; err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *authorRepo) List(dbc dbctx.Context, page Page) ([]*types.Author, int64, error) {
	var total int64
	if err := conn(r.db, dbc).Model(&types.Author{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Author
	q := conn(r.db, dbc).Order("last_name ASC, first_name ASC, id ASC")
	if err := paginate(q, page).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *authorRepo) Update(dbc dbctx.Context, author *types.Author) error {
	return conn(r.db, dbc).
		Model(&types.Author{}).
		Where("id = ?", author.ID).
		Updates(map[string]interface{}{
			"first_name": author.FirstName,
			"last_name":  author.LastName,
			"biography":  author.Biography,
			"birth_date": author.BirthDate,
		}).Error
}

func (r *authorRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := conn(r.db, dbc).Where("id = ?", id).Delete(&types.Author{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *authorRepo) CountBooks(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := conn(r.db, dbc).Model(&types.Book{}).Where("author_id = ?", id).Count(&n).Error
	return n, err
}
