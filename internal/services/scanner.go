package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/data/repos"
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/observability"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

type ScanResult struct {
	Loans      int `json:"loans"`
	Recipients int `json:"recipients"`
	Enqueued   int `json:"enqueued"`
	Skipped    int `json:"skipped"`
}

// OverdueReminder is the payload of one overdue_reminder job.
type OverdueReminder struct {
	Recipient string   `json:"recipient"`
	Titles    []string `json:"titles"`
}

// OverdueScanner reads the ledger and queues one reminder per recipient. It
// never writes loans, so running it twice only duplicates reminders.
type OverdueScanner interface {
	ScanOverdue(ctx context.Context) (ScanResult, error)
}

type overdueScanner struct {
	db    *gorm.DB
	log   *logger.Logger
	loans repos.LoanRepo
	jobs  JobService
	now   func() time.Time
}

func NewOverdueScanner(db *gorm.DB, baseLog *logger.Logger, loans repos.LoanRepo, jobs JobService, now func() time.Time) OverdueScanner {
	if now == nil {
		now = time.Now
	}
	return &overdueScanner{
		db:    db,
		log:   baseLog.With("service", "OverdueScanner"),
		loans: loans,
		jobs:  jobs,
		now:   now,
	}
}

func (s *overdueScanner) ScanOverdue(ctx context.Context) (ScanResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "OverdueScanner.ScanOverdue")
	defer span.End()

	var res ScanResult
	today := types.Today(s.now())
	overdue, err := s.loans.ListOverdue(dbctx.Context{Ctx: ctx}, today)
	if err != nil {
		return res, fmt.Errorf("list overdue loans: %w", err)
	}
	res.Loans = len(overdue)
	observability.Current().SetOverdueLoans(len(overdue))

	reminders := GroupOverdue(overdue)
	for _, l := range overdue {
		if strings.TrimSpace(l.Member.Recipient()) == "" {
			res.Skipped++
		}
	}
	res.Recipients = len(reminders)
	if len(reminders) == 0 {
		return res, nil
	}

	// All reminders of one scan land together or not at all, so a retried
	// scan does not stack partial batches.
	var queued []*types.JobRun
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for _, r := range reminders {
			job, err := s.jobs.Enqueue(dbc, JobTypeOverdueReminder, "", nil, map[string]any{
				"recipient": r.Recipient,
				"titles":    r.Titles,
			})
			if err != nil {
				return err
			}
			queued = append(queued, job)
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("enqueue reminders: %w", err)
	}
	for _, job := range queued {
		s.jobs.Dispatch(job)
	}
	res.Enqueued = len(queued)
	s.log.Info("overdue scan complete", "loans", res.Loans, "recipients", res.Recipients, "skipped", res.Skipped)
	return res, nil
}

// GroupOverdue groups loan titles by recipient address, keeping both the
// order recipients are first seen and every title as enumerated (a title
// overdue twice appears twice). Loans without an address are dropped.
func GroupOverdue(loans []*types.Loan) []OverdueReminder {
	index := map[string]int{}
	var out []OverdueReminder
	for _, l := range loans {
		if l == nil {
			continue
		}
		recipient := strings.TrimSpace(l.Member.Recipient())
		if recipient == "" {
			continue
		}
		title := ""
		if l.Book != nil {
			title = l.Book.Title
		}
		i, ok := index[recipient]
		if !ok {
			i = len(out)
			index[recipient] = i
			out = append(out, OverdueReminder{Recipient: recipient})
		}
		out[i].Titles = append(out[i].Titles, title)
	}
	return out
}
