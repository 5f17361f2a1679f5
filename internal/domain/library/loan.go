package library

import (
	"time"

	"github.com/google/uuid"
)

// Loan is active while IsReturned is false. ReturnDate is set exactly when
// IsReturned is true. Overdue is derived from DueDate and never stored.
type Loan struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index;column:book_id" json:"book_id"`
	Book       *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	MemberID   uuid.UUID  `gorm:"type:uuid;not null;index;column:member_id" json:"member_id"`
	Member     *Member    `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	LoanDate   time.Time  `gorm:"type:date;not null;column:loan_date" json:"loan_date"`
	DueDate    time.Time  `gorm:"type:date;not null;column:due_date" json:"due_date"`
	ReturnDate *time.Time `gorm:"type:date;column:return_date" json:"return_date"`
	IsReturned bool       `gorm:"not null;default:false;column:is_returned" json:"is_returned"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

func (Loan) TableName() string { return "loan" }

func (l *Loan) IsActive() bool { return l != nil && !l.IsReturned }

// IsOverdue reports whether an active loan's due date is strictly before today.
func (l *Loan) IsOverdue(today time.Time) bool {
	return l.IsActive() && Today(l.DueDate).Before(Today(today))
}
