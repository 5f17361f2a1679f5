// Package sendgrid is a minimal client for the SendGrid v3 mail send API.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/library-backend/internal/platform/httpx"
	"github.com/yungbote/library-backend/internal/platform/logger"
)

const (
	mailSendPath  = "/v3/mail/send"
	maxRetryDelay = 10 * time.Second
	maxErrorBody  = 2000
	maxReplyBody  = 64 << 10
)

// Client sends one transactional email per call.
type Client interface {
	Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error)
}

type mailer struct {
	log     *logger.Logger
	cfg     Config
	from    EmailAddress
	hc      *http.Client
	backoff httpx.Backoff
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, errors.New("sendgrid: nil logger")
	}
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &mailer{
		log:     log.With("client", "sendgrid"),
		cfg:     cfg,
		from:    EmailAddress{Email: cfg.DefaultFromEmail, Name: cfg.DefaultFromName},
		hc:      &http.Client{Timeout: cfg.Timeout},
		backoff: httpx.Backoff{Base: time.Second, Max: maxRetryDelay, Jitter: 0.2},
	}, nil
}

// Send retries transport errors, 429 and 5xx up to MaxRetries times.
func (m *mailer) Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error) {
	payload, err := buildPayload(req, m.from)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: encode: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempt := 0
	for {
		attempt++
		res, resp, sendErr := m.attempt(ctx, body)
		if sendErr == nil {
			return res, nil
		}
		if attempt > m.cfg.MaxRetries || !httpx.Retryable(sendErr) {
			return nil, sendErr
		}
		wait := m.backoff.Delay(attempt, resp)
		m.log.Warn("sendgrid send failed, retrying", "attempt", attempt, "wait", wait.String(), "error", sendErr)
		if err := httpx.Wait(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// attempt posts body once. The response is returned alongside an *HTTPError
// so the caller can read Retry-After.
func (m *mailer) attempt(ctx context.Context, body []byte) (*SendEmailResult, *http.Response, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+mailSendPath, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.hc.Do(hreq)
	if err != nil {
		return nil, nil, err
	}
	reply, readErr := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	_ = resp.Body.Close()
	switch {
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, resp, newHTTPError(resp.StatusCode, reply)
	case readErr != nil:
		return nil, resp, readErr
	}
	return &SendEmailResult{
		StatusCode: resp.StatusCode,
		MessageID:  strings.TrimSpace(resp.Header.Get("X-Message-Id")),
	}, resp, nil
}

// HTTPError is a non-2xx reply. Message is SendGrid's first error message
// when the body carries one, otherwise the trimmed body.
type HTTPError struct {
	StatusCode int
	Message    string
}

type errorReply struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func newHTTPError(status int, reply []byte) *HTTPError {
	msg := strings.TrimSpace(string(reply))
	var parsed errorReply
	if json.Unmarshal(reply, &parsed) == nil {
		for _, e := range parsed.Errors {
			if e.Message != "" {
				msg = e.Message
				break
			}
		}
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return &HTTPError{StatusCode: status, Message: msg}
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("sendgrid http %d", e.StatusCode)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }
