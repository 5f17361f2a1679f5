package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/data/repos"
	"github.com/yungbote/library-backend/internal/jobs/notify"
	"github.com/yungbote/library-backend/internal/jobs/runtime"
	"github.com/yungbote/library-backend/internal/jobs/schedule"
	"github.com/yungbote/library-backend/internal/jobs/worker"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
	"github.com/yungbote/library-backend/internal/temporalx/overduescan"
)

type Services struct {
	Wakeup   *services.Wakeup
	Jobs     services.JobService
	Ledger   services.LoanLedger
	Scanner  services.OverdueScanner
	Catalog  services.CatalogService
	Members  services.MemberService
	Notifier services.Notifier

	Registry  *runtime.Registry
	Worker    *worker.Worker
	Scheduler *schedule.Scheduler
	Temporal  *overduescan.Runner
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r repos.Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")
	now := time.Now

	wake := services.NewWakeup()
	jobNotify := services.NewJobNotifier(log, wake)
	jobs := services.NewJobService(db, log, r.JobRun, jobNotify)

	var notifier services.Notifier
	if clients.Mail != nil {
		notifier = services.NewSendGridNotifier(log, clients.Mail, cfg.SendGrid.DefaultFromEmail, cfg.SendGrid.DefaultFromName)
	} else {
		notifier = services.NewLogNotifier(log)
	}

	scanner := services.NewOverdueScanner(db, log, r.Loan, jobs, now)
	out := Services{
		Wakeup:   wake,
		Jobs:     jobs,
		Ledger:   services.NewLoanLedger(db, log, r.Book, r.Member, r.Loan, jobs, cfg.Ledger, now),
		Scanner:  scanner,
		Catalog:  services.NewCatalogService(db, log, r.Author, r.Book, r.Loan),
		Members:  services.NewMemberService(db, log, r.User, r.Member, r.Loan, now),
		Notifier: notifier,
		Registry: runtime.NewRegistry(),
	}

	if err := notify.Register(out.Registry,
		notify.NewLoanConfirmation(log, r.Loan, notifier),
		notify.NewOverdueReminder(log, notifier),
		notify.NewOverdueScan(scanner),
	); err != nil {
		return Services{}, fmt.Errorf("register job handlers: %w", err)
	}
	out.Worker = worker.NewWorker(log, r.JobRun, out.Registry, jobNotify, wake, cfg.Worker)

	if clients.Temporal != nil {
		runner, err := overduescan.NewRunner(log, clients.Temporal, cfg.Temporal, jobs)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal runner: %w", err)
		}
		out.Temporal = runner
	} else if cfg.Scan.Enabled {
		out.Scheduler = schedule.NewScheduler(log, jobs, clients.Locker, cfg.Scan, now)
	}
	return out, nil
}
