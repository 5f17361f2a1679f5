// Package notify holds the job handlers that deliver library mail and run the
// overdue scan.
package notify

import (
	"fmt"

	"github.com/yungbote/library-backend/internal/data/repos"
	"github.com/yungbote/library-backend/internal/jobs/runtime"
	"github.com/yungbote/library-backend/internal/platform/dbctx"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/services"
)

type skipped struct {
	Skipped string `json:"skipped"`
}

type sent struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
}

type LoanConfirmation struct {
	log      *logger.Logger
	loans    repos.LoanRepo
	notifier services.Notifier
}

func NewLoanConfirmation(baseLog *logger.Logger, loans repos.LoanRepo, notifier services.Notifier) *LoanConfirmation {
	return &LoanConfirmation{
		log:      baseLog.With("handler", services.JobTypeLoanConfirmation),
		loans:    loans,
		notifier: notifier,
	}
}

func (h *LoanConfirmation) Type() string { return services.JobTypeLoanConfirmation }

func (h *LoanConfirmation) Run(jc *runtime.Context) error {
	loanID, ok := jc.PayloadUUID("loan_id")
	if !ok {
		return fmt.Errorf("payload missing loan_id")
	}
	loan, err := h.loans.GetWithRelations(dbctx.Context{Ctx: jc.Ctx}, loanID)
	if err != nil {
		return fmt.Errorf("load loan: %w", err)
	}
	// The loan can be gone by the time the job runs.
	if loan == nil {
		h.log.Info("loan vanished before confirmation", "loan_id", loanID)
		jc.Succeed("skipped", skipped{Skipped: "loan_not_found"})
		return nil
	}
	recipient := loan.Member.Recipient()
	if recipient == "" {
		jc.Succeed("skipped", skipped{Skipped: "no_recipient"})
		return nil
	}
	title := ""
	if loan.Book != nil {
		title = loan.Book.Title
	}

	msg := services.LoanConfirmationMessage(loan.Member.Username(), title)
	jc.Progress("sending", 50, "Sending loan confirmation")
	if err := h.notifier.Notify(jc.Ctx, recipient, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	jc.Succeed("sent", sent{Recipient: recipient, Subject: msg.Subject})
	return nil
}

type OverdueReminder struct {
	log      *logger.Logger
	notifier services.Notifier
}

func NewOverdueReminder(baseLog *logger.Logger, notifier services.Notifier) *OverdueReminder {
	return &OverdueReminder{
		log:      baseLog.With("handler", services.JobTypeOverdueReminder),
		notifier: notifier,
	}
}

func (h *OverdueReminder) Type() string { return services.JobTypeOverdueReminder }

func (h *OverdueReminder) Run(jc *runtime.Context) error {
	var p services.OverdueReminder
	if err := jc.DecodePayload(&p); err != nil {
		return fmt.Errorf("decode reminder: %w", err)
	}
	if p.Recipient == "" {
		jc.Succeed("skipped", skipped{Skipped: "no_recipient"})
		return nil
	}
	msg := services.OverdueReminderMessage(p.Recipient, p.Titles)
	jc.Progress("sending", 50, "Sending overdue reminder")
	if err := h.notifier.Notify(jc.Ctx, p.Recipient, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	jc.Succeed("sent", sent{Recipient: p.Recipient, Subject: msg.Subject})
	return nil
}

type OverdueScan struct {
	scanner services.OverdueScanner
}

func NewOverdueScan(scanner services.OverdueScanner) *OverdueScan {
	return &OverdueScan{scanner: scanner}
}

func (h *OverdueScan) Type() string { return services.JobTypeOverdueScan }

func (h *OverdueScan) Run(jc *runtime.Context) error {
	jc.Progress("scanning", 10, "Scanning for overdue loans")
	res, err := h.scanner.ScanOverdue(jc.Ctx)
	if err != nil {
		return err
	}
	jc.Succeed("done", res)
	return nil
}

// Register adds every library handler to r.
func Register(r *runtime.Registry, handlers ...runtime.Handler) error {
	if err := r.Register(handlers...); err != nil {
		return fmt.Errorf("register job handlers: %w", err)
	}
	return nil
}
