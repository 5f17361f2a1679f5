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

type MemberInput struct {
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	MembershipDate *time.Time `json:"membership_date"`
}

type MemberService interface {
	CreateMember(ctx context.Context, in MemberInput) (*types.Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*types.Member, error)
	ListMembers(ctx context.Context, page repos.Page) ([]*types.Member, int64, error)
	UpdateMember(ctx context.Context, id uuid.UUID, in MemberInput) (*types.Member, error)
	DeleteMember(ctx context.Context, id uuid.UUID) error
	TopActive(ctx context.Context, limit int) ([]repos.MemberActivity, error)
}

type memberService struct {
	db      *gorm.DB
	log     *logger.Logger
	users   repos.UserRepo
	members repos.MemberRepo
	loans   repos.LoanRepo
	now     func() time.Time
}

func NewMemberService(db *gorm.DB, baseLog *logger.Logger, users repos.UserRepo, members repos.MemberRepo, loans repos.LoanRepo, now func() time.Time) MemberService {
	if now == nil {
		now = time.Now
	}
	return &memberService{
		db:      db,
		log:     baseLog.With("service", "MemberService"),
		users:   users,
		members: members,
		loans:   loans,
		now:     now,
	}
}

func (s *memberService) CreateMember(ctx context.Context, in MemberInput) (*types.Member, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, invalid("username", "This field is required.")
	}
	email := strings.TrimSpace(in.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, invalid("email", "Enter a valid email address.")
	}
	joined := types.Today(s.now())
	if in.MembershipDate != nil {
		joined = types.Today(*in.MembershipDate)
	}

	var member *types.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		taken, err := s.users.UsernameExists(dbc, username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}
		u := &types.User{
			Username:  username,
			Email:     email,
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
		}
		if err := s.users.Create(dbc, u); err != nil {
			if isUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return err
		}
		m := &types.Member{UserID: u.ID, MembershipDate: joined}
		if _, err := s.members.Create(dbc, []*types.Member{m}); err != nil {
			return err
		}
		m.User = u
		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("member created", "member_id", member.ID, "username", username)
	return member, nil
}

func (s *memberService) GetMember(ctx context.Context, id uuid.UUID) (*types.Member, error) {
	m, err := s.members.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

func (s *memberService) ListMembers(ctx context.Context, page repos.Page) ([]*types.Member, int64, error) {
	return s.members.List(dbctx.Context{Ctx: ctx}, page)
}

// UpdateMember changes the linked user's contact details. The username is
// fixed once created.
func (s *memberService) UpdateMember(ctx context.Context, id uuid.UUID, in MemberInput) (*types.Member, error) {
	email := strings.TrimSpace(in.Email)
	if email != "" && !strings.Contains(email, "@") {
		return nil, invalid("email", "Enter a valid email address.")
	}
	m, err := s.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := repos.Profile{Email: email, FirstName: strings.TrimSpace(in.FirstName), LastName: strings.TrimSpace(in.LastName)}
	if err := s.users.UpdateProfile(dbctx.Context{Ctx: ctx}, m.UserID, profile); err != nil {
		return nil, err
	}
	return s.GetMember(ctx, id)
}

func (s *memberService) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		m, err := s.members.GetByID(dbc, id)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrMemberNotFound
		}
		active, err := s.loans.CountActiveByMember(dbc, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrMemberHasLoans
		}
		if err := s.loans.DeleteReturnedByMember(dbc, id); err != nil {
			return err
		}
		if _, err := s.members.Delete(dbc, id); err != nil {
			return err
		}
		return s.users.Delete(dbc, m.UserID)
	})
}

func (s *memberService) TopActive(ctx context.Context, limit int) ([]repos.MemberActivity, error) {
	return s.members.TopActive(dbctx.Context{Ctx: ctx}, limit)
}
