// Package user stores the identities library members are linked to.
package user

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

// Profile holds the editable contact fields of a user.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

type UserRepo interface {
	Create(dbc dbctx.Context, u *types.User) error
	GetByUsername(dbc dbctx.Context, username string) (*types.User, error)
	UsernameExists(dbc dbctx.Context, username string) (bool, error)
	UpdateProfile(dbc dbctx.Context, id uuid.UUID, p Profile) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) q(dbc dbctx.Context) *gorm.DB { return dbc.Conn(r.db) }

func (r *userRepo) Create(dbc dbctx.Context, u *types.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return r.q(dbc).Create(u).Error
}

// GetByUsername returns nil, nil when no user has that name.
func (r *userRepo) GetByUsername(dbc dbctx.Context, username string) (*types.User, error) {
	var u types.User
	res := r.q(dbc).Where("username = ?", username).Limit(1).Find(&u)
	if res.Error != nil || res.RowsAffected == 0 {
		return nil, res.Error
	}
	return &u, nil
}

func (r *userRepo) UsernameExists(dbc dbctx.Context, username string) (bool, error) {
	var n int64
	err := r.q(dbc).Model(&types.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

// UpdateProfile writes every Profile field, so blanks clear the column.
func (r *userRepo) UpdateProfile(dbc dbctx.Context, id uuid.UUID, p Profile) error {
	return r.q(dbc).Model(&types.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"email":      p.Email,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
	}).Error
}

func (r *userRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return r.q(dbc).Where("id = ?", id).Delete(&types.User{}).Error
}
