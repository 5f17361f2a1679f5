package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/library-backend/internal/observability"
	"github.com/yungbote/library-backend/internal/platform/logger"
	"github.com/yungbote/library-backend/internal/platform/sendgrid"
)

// Notifier sends one message to one recipient. It is only ever called from
// background jobs, never on a ledger commit path.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

type Message struct {
	Subject string
	Body    string
}

func LoanConfirmationMessage(username, title string) Message {
	return Message{
		Subject: "Book Loaned Successfully",
		Body:    fmt.Sprintf("Hello %s,\n\nYou have successfully loaned \"%s\".\nPlease return it by the due date.", username, title),
	}
}

func OverdueReminderMessage(recipient string, titles []string) Message {
	return Message{
		Subject: "Overdue Loans",
		Body:    fmt.Sprintf("Hello %s,\n\nYour submission is due for the following books.\n%s", recipient, strings.Join(titles, ", ")),
	}
}

type sendGridNotifier struct {
	log    *logger.Logger
	client sendgrid.Client
	from   sendgrid.EmailAddress
}

func NewSendGridNotifier(baseLog *logger.Logger, client sendgrid.Client, fromEmail, fromName string) Notifier {
	return &sendGridNotifier{
		log:    baseLog.With("service", "SendGridNotifier"),
		client: client,
		from:   sendgrid.EmailAddress{Email: fromEmail, Name: fromName},
	}
}

func (n *sendGridNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("notify: empty recipient")
	}
	res, err := n.client.Send(ctx, sendgrid.SendEmailRequest{
		From:       n.from,
		To:         []sendgrid.EmailAddress{{Email: recipient}},
		Subject:    subject,
		Text:       body,
		Categories: []string{"library"},
	})
	if err != nil {
		observability.Current().IncNotification(subject, "failed")
		return fmt.Errorf("sendgrid send: %w", err)
	}
	observability.Current().IncNotification(subject, "sent")
	n.log.Debug("notification sent", "recipient", recipient, "subject", subject, "message_id", res.MessageID)
	return nil
}

type logNotifier struct {
	log *logger.Logger
}

// NewLogNotifier is the development notifier: messages are logged, not sent.
func NewLogNotifier(baseLog *logger.Logger) Notifier {
	return &logNotifier{log: baseLog.With("service", "LogNotifier")}
}

func (n *logNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("notify: empty recipient")
	}
	n.log.Info("notification (not sent)", "recipient", recipient, "subject", subject, "body", body)
	observability.Current().IncNotification(subject, "logged")
	return nil
}
