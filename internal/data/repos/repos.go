package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/data/repos/jobs"
	"github.com/yungbote/library-backend/internal/data/repos/library"
	"github.com/yungbote/library-backend/internal/data/repos/user"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type Profile = user.Profile

type AuthorRepo = library.AuthorRepo
type BookRepo = library.BookRepo
type MemberRepo = library.MemberRepo
type LoanRepo = library.LoanRepo

type JobRunRepo = jobs.JobRunRepo

type Page = library.Page
type LoanFilter = library.LoanFilter
type MemberActivity = library.MemberActivity

// Repos bundles every repository over one *gorm.DB.
type Repos struct {
	User   UserRepo
	Author AuthorRepo
	Book   BookRepo
	Member MemberRepo
	Loan   LoanRepo
	JobRun JobRunRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:   user.NewUserRepo(db, log),
		Author: library.NewAuthorRepo(db, log),
		Book:   library.NewBookRepo(db, log),
		Member: library.NewMemberRepo(db, log),
		Loan:   library.NewLoanRepo(db, log),
		JobRun: jobs.NewJobRunRepo(db, log),
	}
}
