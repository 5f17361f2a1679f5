package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/library-backend/internal/domain"
)

// insert writes row without cascading into its associations.
func insert[T any](tb testing.TB, ctx context.Context, tx *gorm.DB, row *T) *T {
	tb.Helper()
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		tb.Fatalf("seed %T: %v", row, err)
	}
	return row
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username, email string) *types.User {
	tb.Helper()
	return insert(tb, ctx, tx, &types.User{ID: uuid.New(), Username: username, Email: email, FirstName: "A", LastName: "B"})
}

func SeedAuthor(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.Author {
	tb.Helper()
	return insert(tb, ctx, tx, &types.Author{ID: uuid.New(), FirstName: "Ursula", LastName: "Le Guin"})
}

// SeedBook creates a book, and a fresh author for it, with the given copy
// counters.
func SeedBook(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, total, available int) *types.Book {
	tb.Helper()
	return insert(tb, ctx, tx, &types.Book{
		ID:              uuid.New(),
		Title:           title,
		AuthorID:        SeedAuthor(tb, ctx, tx).ID,
		TotalCopies:     total,
		AvailableCopies: available,
	})
}

// SeedMember creates a user and the member linked to it, joined today.
func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, username, email string) *types.Member {
	tb.Helper()
	u := SeedUser(tb, ctx, tx, username, email)
	m := insert(tb, ctx, tx, &types.Member{ID: uuid.New(), UserID: u.ID, MembershipDate: types.Today(time.Now())})
	m.User = u
	return m
}

// SeedLoan inserts an active loan. It leaves the book's available copies
// alone.
func SeedLoan(tb testing.TB, ctx context.Context, tx *gorm.DB, bookID, memberID uuid.UUID, loanDate, dueDate time.Time) *types.Loan {
	tb.Helper()
	return insert(tb, ctx, tx, &types.Loan{
		ID:       uuid.New(),
		BookID:   bookID,
		MemberID: memberID,
		LoanDate: types.Today(loanDate),
		DueDate:  types.Today(dueDate),
	})
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
