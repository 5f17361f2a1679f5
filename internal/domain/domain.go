package domain

import (
	"github.com/yungbote/library-backend/internal/domain/jobs"
	"github.com/yungbote/library-backend/internal/domain/library"
	"github.com/yungbote/library-backend/internal/domain/user"
)

const (
	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
)

type User = user.User

type Author = library.Author
type Book = library.Book
type Member = library.Member
type Loan = library.Loan

type JobRun = jobs.JobRun

var (
	Today   = library.Today
	AddDays = library.AddDays
)

// Models lists every table owned by the service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Author{},
		&Book{},
		&Member{},
		&Loan{},
		&JobRun{},
	}
}
