package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/data/repos"
	"github.com/yungbote/library-backend/internal/data/repos/testutil"
	types "github.com/yungbote/library-backend/internal/domain"
)

var fixedNow = time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)

type harness struct {
	ctx     context.Context
	db      *gorm.DB
	repos   repos.Repos
	wake    *Wakeup
	jobs    JobService
	ledger  LoanLedger
	scanner OverdueScanner
	catalog CatalogService
	members MemberService
	today   time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, testutil.SQLite(t))
}

func newHarnessOn(t *testing.T, db *gorm.DB) *harness {
	t.Helper()
	log := testutil.Logger(t)
	r := repos.New(db, log)
	wake := NewWakeup()
	jobs := NewJobService(db, log, r.JobRun, NewJobNotifier(log, wake))
	now := func() time.Time { return fixedNow }
	return &harness{
		ctx:     context.Background(),
		db:      db,
		repos:   r,
		wake:    wake,
		jobs:    jobs,
		ledger:  NewLoanLedger(db, log, r.Book, r.Member, r.Loan, jobs, LedgerConfig{}, now),
		scanner: NewOverdueScanner(db, log, r.Loan, jobs, now),
		catalog: NewCatalogService(db, log, r.Author, r.Book, r.Loan),
		members: NewMemberService(db, log, r.User, r.Member, r.Loan, now),
		today:   types.Today(fixedNow),
	}
}

func (h *harness) book(t *testing.T, id uuid.UUID) *types.Book {
	t.Helper()
	var b types.Book
	require.NoError(t, h.db.First(&b, "id = ?", id).Error)
	return &b
}

func (h *harness) activeLoans(t *testing.T, bookID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&types.Loan{}).
		Where("book_id = ? AND is_returned = ?", bookID, false).
		Count(&n).Error)
	return n
}

func (h *harness) jobsOfType(t *testing.T, jobType string) []*types.JobRun {
	t.Helper()
	var out []*types.JobRun
	require.NoError(t, h.db.Where("job_type = ?", jobType).Order("created_at ASC").Find(&out).Error)
	return out
}

func (h *harness) drainWake() bool {
	select {
	case <-h.wake.C():
		return true
	default:
		return false
	}
}
