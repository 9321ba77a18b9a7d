// Package email sends transactional mail through a configurable provider.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Receipt identifies an accepted message at the provider.
type Receipt struct {
	Provider  string
	MessageID string
}

// Sender delivers a message or fails with a *SendError.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
	Provider() string
}

// SendError is a typed delivery failure. Status is the provider's HTTP status
// when there was one.
type SendError struct {
	Provider string
	Reason   string
	Status   int
	Err      error
}

func (e *SendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Reason, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Settings selects and configures a provider.
type Settings struct {
	Provider       string // postmark, resend, sendgrid, smtp, log
	DryRun         bool
	From           string
	PostmarkToken  string
	ResendAPIKey   string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       string
	SMTPUser       string
	SMTPPassword   string
}

// New returns the Sender for s. Dry run, or the "log" provider, yields a
// sender that only logs.
func New(s Settings, logger *slog.Logger, opts ...Option) (Sender, error) {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if s.DryRun || provider == "" || provider == "log" {
		return NewDryRun(logger), nil
	}
	if strings.TrimSpace(s.From) == "" {
		return nil, fmt.Errorf("email provider %s: missing from address", provider)
	}

	switch provider {
	case "postmark":
		if s.PostmarkToken == "" {
			return nil, fmt.Errorf("email provider postmark: missing server token")
		}
		return NewPostmark(s.PostmarkToken, s.From, opts...), nil
	case "resend":
		if s.ResendAPIKey == "" {
			return nil, fmt.Errorf("email provider resend: missing API key")
		}
		return NewResend(s.ResendAPIKey, s.From, opts...), nil
	case "sendgrid":
		if s.SendGridAPIKey == "" {
			return nil, fmt.Errorf("email provider sendgrid: missing API key")
		}
		return NewSendGrid(s.SendGridAPIKey, s.From, opts...), nil
	case "smtp":
		if s.SMTPHost == "" {
			return nil, fmt.Errorf("email provider smtp: missing host")
		}
		return NewSMTP(s.SMTPHost, s.SMTPPort, s.SMTPUser, s.SMTPPassword, s.From), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", provider)
	}
}

type httpSender struct {
	httpClient *http.Client
	baseURL    string
}

type Option func(*httpSender)

func WithHTTPClient(c *http.Client) Option {
	return func(h *httpSender) {
		h.httpClient = c
	}
}

// WithBaseURL points an HTTP provider at another API host.
func WithBaseURL(u string) Option {
	return func(h *httpSender) {
		h.baseURL = strings.TrimRight(u, "/")
	}
}

func newHTTPSender(defaultBase string, opts []Option) httpSender {
	h := httpSender{httpClient: http.DefaultClient, baseURL: defaultBase}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}
