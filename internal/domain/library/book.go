package library

import (
	"time"

	"github.com/google/uuid"
)

// Book carries the denormalized availability counter owned by the loan ledger:
// available_copies = total_copies - active loans on the book.
type Book struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string     `gorm:"not null;column:title" json:"title"`
	AuthorID        uuid.UUID  `gorm:"type:uuid;not null;index;column:author_id" json:"author_id"`
	Author          *Author    `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	ISBN            *string    `gorm:"uniqueIndex;column:isbn;size:13" json:"isbn,omitempty"`
	Description     string     `gorm:"column:description" json:"description,omitempty"`
	Genre           string     `gorm:"column:genre;index" json:"genre,omitempty"`
	PublishedDate   *time.Time `gorm:"type:date;column:published_date" json:"published_date,omitempty"`
	TotalCopies     int        `gorm:"not null;column:total_copies" json:"total_copies"`
	AvailableCopies int        `gorm:"not null;column:available_copies;check:chk_book_copies,available_copies >= 0 AND available_copies <= total_copies" json:"available_copies"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (Book) TableName() string { return "book" }
