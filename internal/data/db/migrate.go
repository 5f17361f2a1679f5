package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/library-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return EnsureLibraryIndexes(db)
}

// EnsureLibraryIndexes creates the partial indexes gorm tags cannot express.
// Both statements are valid on Postgres and SQLite.
func EnsureLibraryIndexes(db *gorm.DB) error {
	// At most one active loan per (book, member).
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_loan_active_book_member
		ON loan(book_id, member_id)
		WHERE is_returned = false;
	`).Error; err != nil {
		return fmt.Errorf("create uq_loan_active_book_member: %w", err)
	}
	// Overdue scan: active loans by due date.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_loan_overdue
		ON loan(due_date)
		WHERE is_returned = false;
	`).Error; err != nil {
		return fmt.Errorf("create idx_loan_overdue: %w", err)
	}
	return nil
}
