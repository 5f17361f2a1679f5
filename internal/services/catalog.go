package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/data/repos"
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type AuthorInput struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Biography string     `json:"biography"`
	BirthDate *time.Time `json:"birth_date"`
}

type BookInput struct {
	Title         string     `json:"title"`
	AuthorID      uuid.UUID  `json:"author_id"`
	ISBN          *string    `json:"isbn"`
	Description   string     `json:"description"`
	Genre         string     `json:"genre"`
	PublishedDate *time.Time `json:"published_date"`
	TotalCopies   int        `json:"total_copies"`
}

// CatalogService manages authors and books. A new book starts with every
// copy available; afterwards the loan ledger owns available_copies.
type CatalogService interface {
	CreateAuthor(ctx context.Context, in AuthorInput) (*types.Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*types.Author, error)
	ListAuthors(ctx context.Context, page repos.Page) ([]*types.Author, int64, error)
	UpdateAuthor(ctx context.Context, id uuid.UUID, in AuthorInput) (*types.Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) error

	CreateBook(ctx context.Context, in BookInput) (*types.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*types.Book, error)
	ListBooks(ctx context.Context, page repos.Page) ([]*types.Book, int64, error)
	UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) (*types.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	db      *gorm.DB
	log     *logger.Logger
	authors repos.AuthorRepo
	books   repos.BookRepo
	loans   repos.LoanRepo
}

func NewCatalogService(db *gorm.DB, baseLog *logger.Logger, authors repos.AuthorRepo, books repos.BookRepo, loans repos.LoanRepo) CatalogService {
	return &catalogService{
		db:      db,
		log:     baseLog.With("service", "CatalogService"),
		authors: authors,
		books:   books,
		loans:   loans,
	}
}

func (in AuthorInput) validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return invalid("first_name", "This field is required.")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return invalid("last_name", "This field is required.")
	}
	return nil
}

func (s *catalogService) CreateAuthor(ctx context.Context, in AuthorInput) (*types.Author, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	a := &types.Author{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Biography: in.Biography,
		BirthDate: datePtr(in.BirthDate),
	}
	if _, err := s.authors.Create(dbctx.Context{Ctx: ctx}, []*types.Author{a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *catalogService) GetAuthor(ctx context.Context, id uuid.UUID) (*types.Author, error) {
	a, err := s.authors.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAuthorNotFound
	}
	return a, nil
}

func (s *catalogService) ListAuthors(ctx context.Context, page repos.Page) ([]*types.Author, int64, error) {
	return s.authors.List(dbctx.Context{Ctx: ctx}, page)
}

func (s *catalogService) UpdateAuthor(ctx context.Context, id uuid.UUID, in AuthorInput) (*types.Author, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	a, err := s.authors.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAuthorNotFound
	}
	a.FirstName = strings.TrimSpace(in.FirstName)
	a.LastName = strings.TrimSpace(in.LastName)
	a.Biography = in.Biography
	a.BirthDate = datePtr(in.BirthDate)
	if err := s.authors.Update(dbc, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *catalogService) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		n, err := s.authors.CountBooks(dbc, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAuthorHasBooks
		}
		deleted, err := s.authors.Delete(dbc, id)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrAuthorNotFound
		}
		return nil
	})
}

func (s *catalogService) validateBook(dbc dbctx.Context, in BookInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "This field is required.")
	}
	if in.AuthorID == uuid.Nil {
		return invalid("author_id", "This field is required.")
	}
	if in.TotalCopies < 0 {
		return invalid("total_copies", "Ensure this value is greater than or equal to 0.")
	}
	if in.ISBN != nil && len(strings.TrimSpace(*in.ISBN)) > 13 {
		return invalid("isbn", "Ensure this field has no more than 13 characters.")
	}
	a, err := s.authors.GetByID(dbc, in.AuthorID)
	if err != nil {
		return err
	}
	if a == nil {
		return invalid("author_id", "Author %s does not exist.", in.AuthorID)
	}
	return nil
}

func (s *catalogService) CreateBook(ctx context.Context, in BookInput) (*types.Book, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.validateBook(dbc, in); err != nil {
		return nil, err
	}
	b := &types.Book{
		Title:           strings.TrimSpace(in.Title),
		AuthorID:        in.AuthorID,
		ISBN:            normalizeISBN(in.ISBN),
		Description:     in.Description,
		Genre:           in.Genre,
		PublishedDate:   datePtr(in.PublishedDate),
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}
	if _, err := s.books.Create(dbc, []*types.Book{b}); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrISBNTaken
		}
		return nil, err
	}
	return s.GetBook(ctx, b.ID)
}

func (s *catalogService) GetBook(ctx context.Context, id uuid.UUID) (*types.Book, error) {
	b, err := s.books.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrBookNotFound
	}
	return b, nil
}

func (s *catalogService) ListBooks(ctx context.Context, page repos.Page) ([]*types.Book, int64, error) {
	return s.books.List(dbctx.Context{Ctx: ctx}, page)
}

// UpdateBook rewrites catalog fields. A change to total_copies moves
// available_copies by the same delta and may not drop below the copies
// currently lent out.
func (s *catalogService) UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) (*types.Book, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.validateBook(dbc, in); err != nil {
			return err
		}
		b, err := s.books.GetByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBookNotFound
		}
		lent, err := s.loans.CountActiveByBook(dbc, id)
		if err != nil {
			return err
		}
		if int64(in.TotalCopies) < lent {
			return ErrCopiesBelowLent
		}
		delta := in.TotalCopies - b.TotalCopies
		b.Title = strings.TrimSpace(in.Title)
		b.AuthorID = in.AuthorID
		b.ISBN = normalizeISBN(in.ISBN)
		b.Description = in.Description
		b.Genre = in.Genre
		b.PublishedDate = datePtr(in.PublishedDate)
		b.TotalCopies = in.TotalCopies
		b.AvailableCopies += delta
		if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
			return ErrLedgerInconsistent
		}
		if err := s.books.Update(dbc, b); err != nil {
			if isUniqueViolation(err) {
				return ErrISBNTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBook(ctx, id)
}

func (s *catalogService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		b, err := s.books.GetByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBookNotFound
		}
		lent, err := s.loans.CountActiveByBook(dbc, id)
		if err != nil {
			return err
		}
		if lent > 0 {
			return ErrBookHasLoans
		}
		if err := s.loans.DeleteReturnedByBook(dbc, id); err != nil {
			return err
		}
		_, err = s.books.Delete(dbc, id)
		return err
	})
}

func normalizeISBN(isbn *string) *string {
	if isbn == nil {
		return nil
	}
	v := strings.TrimSpace(*isbn)
	if v == "" {
		return nil
	}
	return &v
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := types.Today(*t)
	return &d
}
