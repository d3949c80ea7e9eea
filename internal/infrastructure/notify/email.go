package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"
)

// EmailConfig holds SMTP settings
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Enabled reports whether enough is configured to send mail
func (c EmailConfig) Enabled() bool {
	return c.Host != "" && c.From != "" && len(c.To) > 0
}

// sendFunc delivers a built message; swapped in tests
type sendFunc func(addr string, auth smtp.Auth, e *email.Email) error

// EmailNotifier mails a digest of triggered results
type EmailNotifier struct {
	config EmailConfig
	send   sendFunc
	log    zerolog.Logger
}

// NewEmailNotifier creates an SMTP notifier
func NewEmailNotifier(config EmailConfig, log zerolog.Logger) *EmailNotifier {
	if config.Port == 0 {
		config.Port = 587
	}
	return &EmailNotifier{
		config: config,
		send: func(addr string, auth smtp.Auth, e *email.Email) error {
			return e.Send(addr, auth)
		},
		log: log,
	}
}

// Build assembles the digest message
func (n *EmailNotifier) Build(results []domain.RankedResult) (*email.Email, error) {
	var body bytes.Buffer
	for _, r := range results {
		body.WriteString(Headline(r))
		body.WriteString("\n")
	}
	body.WriteString("\n")
	if err := RenderLeaderboard(&body, results); err != nil {
		return nil, err
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Billigst mat <%s>", n.config.From)
	mail.To = n.config.To
	mail.Subject = Subject(results)
	mail.Text = body.Bytes()
	mail.HTML = []byte(RenderHTML(results))
	return mail, nil
}

// Notify implements domain.Notifier. Servers without AUTH get an unauthenticated retry.
func (n *EmailNotifier) Notify(ctx context.Context, results []domain.RankedResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mail, err := n.Build(results)
	if err != nil {
		return fmt.Errorf("%w: building email: %v", domain.ErrNotifyFailure, err)
	}

	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)
	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	err = n.send(addr, auth, mail)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.send(addr, nil, mail)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotifyFailure, err)
	}

	n.log.Info().Int("results", len(results)).Strs("to", n.config.To).Msg("notification email sent")
	return nil
}
