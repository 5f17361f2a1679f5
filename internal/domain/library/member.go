package library

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/library-backend/internal/domain/user"
)

type Member struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`
	User           *user.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	MembershipDate time.Time  `gorm:"type:date;not null;column:membership_date" json:"membership_date"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (Member) TableName() string { return "member" }

// Recipient is the address overdue and confirmation mail goes to.
func (m *Member) Recipient() string {
	if m == nil || m.User == nil {
		return ""
	}
	return m.User.Email
}

func (m *Member) Username() string {
	if m == nil || m.User == nil {
		return ""
	}
	return m.User.Username
}
