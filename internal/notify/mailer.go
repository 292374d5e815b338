package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/attention-check/internal/config"
)

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers notifications by email.
type Mailer struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	send sendMailFunc
}

// NewMailer builds a mailer from SMTP settings. The password is read from
// the environment variable named in the settings.
func NewMailer(settings config.SMTP) *Mailer {
	var auth smtp.Auth
	if settings.Username != "" {
		auth = smtp.PlainAuth("", settings.Username, settings.Password(), settings.Host)
	}

	from := settings.From
	if from == "" {
		from = settings.Username
	}

	return &Mailer{
		addr: net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port)),
		auth: auth,
		from: from,
		to:   append([]string(nil), settings.To...),
		send: smtp.SendMail,
	}
}

// Name implements Sink.
func (m *Mailer) Name() string {
	return "smtp"
}

// Send implements Sink. The SMTP exchange itself cannot be interrupted, so
// a cancelled ctx only stops waiting for it.
func (m *Mailer) Send(ctx context.Context, n Notification) error {
	msg := m.compose(n)
	result := make(chan error, 1)

	go func() {
		result <- m.send(m.addr, m.auth, m.from, m.to, msg)
	}()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}

		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail: %w", ctx.Err())
	}
}

func (m *Mailer) compose(n Notification) []byte {
	var b strings.Builder

	b.WriteString("From: " + m.from + "\r\n")
	b.WriteString("To: " + strings.Join(m.to, ", ") + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(n.Subject) + "\r\n")
	b.WriteString("Date: " + n.At.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(n.Message)
	b.WriteString("\r\n")

	return []byte(b.String())
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
