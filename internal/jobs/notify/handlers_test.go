package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/data/repos"
	"github.com/yungbote/library-backend/internal/data/repos/testutil"
	types "github.com/yungbote/library-backend/internal/domain"
	"github.com/yungbote/library-backend/internal/jobs/runtime"
	"github.com/yungbote/library-backend/internal/jobs/worker"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/services"
)

type sentMail struct {
	to, subject, body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, recipient, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: recipient, subject: subject, body: body})
	return nil
}

func (f *fakeNotifier) mails() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

var today = time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC)

type env struct {
	ctx    context.Context
	db     *gorm.DB
	repos  repos.Repos
	jobs   services.JobService
	ledger services.LoanLedger
	worker *worker.Worker
	mail   *fakeNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	r := repos.New(db, log)
	wake := services.NewWakeup()
	notifier := services.NewJobNotifier(log, wake)
	jobs := services.NewJobService(db, log, r.JobRun, notifier)
	now := func() time.Time { return today }
	mail := &fakeNotifier{}

	reg := runtime.NewRegistry()
	require.NoError(t, Register(reg,
		NewLoanConfirmation(log, r.Loan, mail),
		NewOverdueReminder(log, mail),
		NewOverdueScan(services.NewOverdueScanner(db, log, r.Loan, jobs, now)),
	))
	w := worker.NewWorker(log, r.JobRun, reg, notifier, wake, worker.Config{Concurrency: 1, RetryDelay: time.Hour})

	return &env{
		ctx:    context.Background(),
		db:     db,
		repos:  r,
		jobs:   jobs,
		ledger: services.NewLoanLedger(db, log, r.Book, r.Member, r.Loan, jobs, services.LedgerConfig{}, now),
		worker: w,
		mail:   mail,
	}
}

func (e *env) job(t *testing.T, jobType string) *types.JobRun {
	t.Helper()
	var j types.JobRun
	require.NoError(t, e.db.Where("job_type = ?", jobType).Order("created_at DESC").First(&j).Error)
	return &j
}

func TestLoanConfirmationSent(t *testing.T) {
	e := newEnv(t)
	book := testutil.SeedBook(t, e.ctx, e.db, "Beloved", 1, 1)
	m := testutil.SeedMember(t, e.ctx, e.db, "toni", "toni@example.com")

	_, err := e.ledger.BorrowBook(e.ctx, book.ID, m.ID)
	require.NoError(t, err)

	n, err := e.worker.Drain(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mails := e.mail.mails()
	require.Len(t, mails, 1)
	assert.Equal(t, "toni@example.com", mails[0].to)
	assert.Equal(t, "Book Loaned Successfully", mails[0].subject)
	assert.Equal(t, "Hello toni,\n\nYou have successfully loaned \"Beloved\".\nPlease return it by the due date.", mails[0].body)

	job := e.job(t, services.JobTypeLoanConfirmation)
	assert.Equal(t, types.JobStatusSucceeded, job.Status)
	assert.Equal(t, "sent", job.Stage)
	assert.Equal(t, 1, job.Attempts)
}

func TestLoanConfirmationMissingLoanIsSkipped(t *testing.T) {
	e := newEnv(t)
	book := testutil.SeedBook(t, e.ctx, e.db, "Sula", 1, 1)
	m := testutil.SeedMember(t, e.ctx, e.db, "nel", "nel@example.com")

	loan, err := e.ledger.BorrowBook(e.ctx, book.ID, m.ID)
	require.NoError(t, err)
	require.NoError(t, e.db.Where("id = ?", loan.ID).Delete(&types.Loan{}).Error)

	_, err = e.worker.Drain(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, e.mail.mails())

	job := e.job(t, services.JobTypeLoanConfirmation)
	assert.Equal(t, types.JobStatusSucceeded, job.Status)
	var res map[string]string
	require.NoError(t, json.Unmarshal(job.Result, &res))
	assert.Equal(t, "loan_not_found", res["skipped"])
}

func TestNotificationFailureLeavesLoanIntact(t *testing.T) {
	e := newEnv(t)
	e.mail.err = errors.New("smtp down")
	book := testutil.SeedBook(t, e.ctx, e.db, "Jazz", 1, 1)
	m := testutil.SeedMember(t, e.ctx, e.db, "joe", "joe@example.com")

	loan, err := e.ledger.BorrowBook(e.ctx, book.ID, m.ID)
	require.NoError(t, err)

	_, err = e.worker.Drain(e.ctx)
	require.NoError(t, err)

	job := e.job(t, services.JobTypeLoanConfirmation)
	assert.Equal(t, types.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "smtp down")
	assert.NotNil(t, job.LastErrorAt)

	// Inside the retry delay nothing is claimable.
	ran, err := e.worker.RunOnce(e.ctx)
	require.NoError(t, err)
	assert.False(t, ran)

	stored, err := e.repos.Loan.GetByID(dbctx.Context{Ctx: e.ctx}, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsReturned)
}

func TestOverdueScanSendsOneReminderPerMember(t *testing.T) {
	e := newEnv(t)
	d := types.Today(today)
	b1 := testutil.SeedBook(t, e.ctx, e.db, "Song of Solomon", 2, 0)
	b2 := testutil.SeedBook(t, e.ctx, e.db, "Paradise", 2, 1)
	a := testutil.SeedMember(t, e.ctx, e.db, "ava", "ava@example.com")
	b := testutil.SeedMember(t, e.ctx, e.db, "bo", "bo@example.com")
	testutil.SeedLoan(t, e.ctx, e.db, b1.ID, a.ID, types.AddDays(d, -20), types.AddDays(d, -6))
	testutil.SeedLoan(t, e.ctx, e.db, b2.ID, a.ID, types.AddDays(d, -18), types.AddDays(d, -4))
	testutil.SeedLoan(t, e.ctx, e.db, b1.ID, b.ID, types.AddDays(d, -16), types.AddDays(d, -2))

	_, created, err := e.jobs.EnqueueOverdueScanIfNeeded(dbctx.Context{Ctx: e.ctx}, "test")
	require.NoError(t, err)
	require.True(t, created)

	n, err := e.worker.Drain(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one scan plus two reminders")

	scan := e.job(t, services.JobTypeOverdueScan)
	assert.Equal(t, types.JobStatusSucceeded, scan.Status)
	var res services.ScanResult
	require.NoError(t, json.Unmarshal(scan.Result, &res))
	assert.Equal(t, services.ScanResult{Loans: 3, Recipients: 2, Enqueued: 2}, res)

	bodies := map[string]string{}
	for _, m := range e.mail.mails() {
		assert.Equal(t, "Overdue Loans", m.subject)
		bodies[m.to] = m.body
	}
	assert.Equal(t, map[string]string{
		"ava@example.com": "Hello ava@example.com,\n\nYour submission is due for the following books.\nSong of Solomon, Paradise",
		"bo@example.com":  "Hello bo@example.com,\n\nYour submission is due for the following books.\nSong of Solomon",
	}, bodies)
}

func TestOverdueReminderWithoutRecipientIsSkipped(t *testing.T) {
	e := newEnv(t)
	_, err := e.jobs.Enqueue(dbctx.Context{Ctx: e.ctx}, services.JobTypeOverdueReminder, "", nil, map[string]any{"titles": []string{"X"}})
	require.NoError(t, err)

	_, err = e.worker.Drain(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, e.mail.mails())
	assert.Equal(t, "skipped", e.job(t, services.JobTypeOverdueReminder).Stage)
}
