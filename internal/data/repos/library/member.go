package library

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

// MemberActivity is one row of the most-active-members listing.
type MemberActivity struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	ActiveLoans int64     `json:"active_loans"`
}

type MemberRepo interface {
	Create(dbc dbctx.Context, members []*types.Member) ([]*types.Member, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Member, error)
	List(dbc dbctx.Context, page Page) ([]*types.Member, int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
	TopActive(dbc dbctx.Context, limit int) ([]MemberActivity, error)
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return &memberRepo{db: db, log: baseLog.With("repo", "MemberRepo")}
}

func (r *memberRepo) Create(dbc dbctx.Context, members []*types.Member) ([]*types.Member, error) {
	if len(members) == 0 {
		return []*types.Member{}, nil
	}
	for _, m := range members {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
	}
	if err := conn(r.db, dbc).Omit(clause.Associations).Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *memberRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Member, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var m types.Member
	if err := conn(r.db, dbc).Preload("User").Where("id = ?", id).Limit(1).Find(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	return &m, nil
}

func (r *memberRepo) List(dbc dbctx.Context, page Page) ([]*types.Member, int64, error) {
	var total int64
	if err := conn(r.db, dbc).Model(&types.Member{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Member
	q := conn(r.db, dbc).Preload("User").Order("membership_date ASC, id ASC")
	if err := paginate(q, page).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *memberRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := conn(r.db, dbc).Where("id = ?", id).Delete(&types.Member{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TopActive ranks members by their count of unreturned loans, most first.
func (r *memberRepo) TopActive(dbc dbctx.Context, limit int) ([]MemberActivity, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []MemberActivity
	err := conn(r.db, dbc).
		Table("member").
		Select(`member.id AS id,
			library_user.username AS username,
			library_user.email AS email,
			COALESCE(SUM(CASE WHEN loan.is_returned = false THEN 1 ELSE 0 END), 0) AS active_loans`).
		Joins("JOIN library_user ON library_user.id = member.user_id").
		Joins("LEFT JOIN loan ON loan.member_id = member.id").
		Group("member.id, library_user.username, library_user.email").
		Order("active_loans DESC, library_user.username ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
