package sendgrid

import (
	"errors"
	"strings"
)

type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendEmailRequest is one message to one or more recipients. An empty From
// uses the configured default sender.
type SendEmailRequest struct {
	From       EmailAddress
	To         []EmailAddress
	Subject    string
	Text       string
	HTML       string
	Categories []string
}

type SendEmailResult struct {
	StatusCode int
	MessageID  string
}

var (
	errNoSender    = errors.New("sendgrid: sender required (set SENDGRID_FROM_EMAIL)")
	errNoRecipient = errors.New("sendgrid: at least one recipient required")
	errNoSubject   = errors.New("sendgrid: subject required")
	errNoContent   = errors.New("sendgrid: text or html body required")
)

// v3 /mail/send body.
type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             EmailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
	Categories       []string          `json:"categories,omitempty"`
}

type personalization struct {
	To []EmailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// buildPayload validates req and renders the wire body. SendGrid requires
// text/plain to precede text/html.
func buildPayload(req SendEmailRequest, fallback EmailAddress) (mailSendRequest, error) {
	from := req.From
	if strings.TrimSpace(from.Email) == "" {
		from = fallback
	}
	from.Email = strings.TrimSpace(from.Email)
	if from.Email == "" {
		return mailSendRequest{}, errNoSender
	}

	to := make([]EmailAddress, 0, len(req.To))
	for _, addr := range req.To {
		if addr.Email = strings.TrimSpace(addr.Email); addr.Email != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return mailSendRequest{}, errNoRecipient
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return mailSendRequest{}, errNoSubject
	}

	var content []mailContent
	if body := strings.TrimSpace(req.Text); body != "" {
		content = append(content, mailContent{Type: "text/plain", Value: body})
	}
	if body := strings.TrimSpace(req.HTML); body != "" {
		content = append(content, mailContent{Type: "text/html", Value: body})
	}
	if len(content) == 0 {
		return mailSendRequest{}, errNoContent
	}

	return mailSendRequest{
		Personalizations: []personalization{{To: to}},
		From:             from,
		Subject:          subject,
		Content:          content,
		Categories:       req.Categories,
	}, nil
}
