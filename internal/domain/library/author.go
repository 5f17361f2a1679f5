package library

import (
	"time"

	"github.com/google/uuid"
)

type Author struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName string     `gorm:"not null;column:first_name" json:"first_name"`
	LastName  string     `gorm:"not null;column:last_name" json:"last_name"`
	Biography string     `gorm:"column:biography" json:"biography,omitempty"`
	BirthDate *time.Time `gorm:"type:date;column:birth_date" json:"birth_date,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Author) TableName() string { return "author" }
