package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/yourorg/taskboard/internal/reliability/circuitbreaker"
	"github.com/yourorg/taskboard/internal/reliability/retry"
)

// Message is an outbound email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer hands a message to the external mail transport. Delivery is
// best-effort: callers treat errors as a lost notification, never as a
// reason to undo the mutation that triggered it.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends mail over a plain SMTP relay. Sends go through a small
// retry and a circuit breaker so a dead relay fails fast instead of tying
// up the dispatch loop.
type SMTPMailer struct {
	addr     string
	from     string
	logger   *slog.Logger
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg *retry.Config
}

// NewSMTPMailer creates a mailer targeting host:port
func NewSMTPMailer(host string, port int, from string, logger *slog.Logger) *SMTPMailer {
	if logger == nil {
		logger = slog.Default()
	}

	return &SMTPMailer{
		addr:     fmt.Sprintf("%s:%d", host, port),
		from:     from,
		logger:   logger,
		breaker:  circuitbreaker.New(5, 1, 30*time.Second),
		retryCfg: retry.DefaultConfig(),
	}
}

// Send delivers the message through the relay
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	return retry.Do(ctx, m.retryCfg, m.logger, "send mail", func(ctx context.Context) error {
		return m.breaker.Call(func() error {
			return smtp.SendMail(m.addr, nil, m.from, []string{msg.To}, m.encode(msg))
		})
	})
}

func (m *SMTPMailer) encode(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
