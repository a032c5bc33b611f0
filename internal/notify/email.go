package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dev-tams/cronkit/internal/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type emailNotifier struct {
	addr string
	auth smtp.Auth
	from *mail.Address
	to   []*mail.Address
	send sendMailFunc
	now  func() time.Time
}

// NewEmail sends events as plain-text mail through an SMTP relay.
// Username and password are optional but must come as a pair.
func NewEmail(d config.NotificationDetails) (Notifier, error) {
	host := strings.TrimSpace(d.SMTPHost)
	switch {
	case host == "":
		return nil, fmt.Errorf("config.smtp_host is required")
	case d.SMTPPort <= 0 || d.SMTPPort > 65535:
		return nil, fmt.Errorf("config.smtp_port=%d is not a valid port", d.SMTPPort)
	}

	from, err := mail.ParseAddress(strings.TrimSpace(d.From))
	if err != nil {
		return nil, fmt.Errorf("config.from: %w", err)
	}

	var to []*mail.Address
	if strings.Trim(d.To, " ,") != "" {
		to, err = mail.ParseAddressList(d.To)
		if err != nil {
			return nil, fmt.Errorf("config.to: %w", err)
		}
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("config.to must include at least one recipient")
	}

	user, pass := strings.TrimSpace(d.Username), strings.TrimSpace(d.Password)
	if (user == "") != (pass == "") {
		return nil, fmt.Errorf("config.username and config.password must be set together")
	}
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}

	return &emailNotifier{
		addr: net.JoinHostPort(host, strconv.Itoa(d.SMTPPort)),
		auth: auth,
		from: from,
		to:   to,
		send: smtp.SendMail,
		now:  time.Now,
	}, nil
}

func (e *emailNotifier) Notify(ctx context.Context, event Event) error {
	// net/smtp has no context support; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}

	rcpt := make([]string, 0, len(e.to))
	for _, a := range e.to {
		rcpt = append(rcpt, a.Address)
	}
	if err := e.send(e.addr, e.auth, e.from.Address, rcpt, e.message(event)); err != nil {
		return fmt.Errorf("send mail via %s: %w", e.addr, err)
	}
	return nil
}

func (e *emailNotifier) message(event Event) []byte {
	to := make([]string, 0, len(e.to))
	for _, a := range e.to {
		to = append(to, a.String())
	}

	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", e.from.String())
	header("To", strings.Join(to, ", "))
	header("Subject", event.Subject())
	header("Date", e.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	header("X-Cronkit-Event", event.Kind)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(buildEmailBody(event), "\n", "\r\n"))
	return b.Bytes()
}

// buildEmailBody lists the populated event fields, one per line.
func buildEmailBody(event Event) string {
	var b strings.Builder
	b.WriteString("Event " + event.ID + "\n\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 1, ' ', 0)
	for _, f := range []struct{ label, value string }{
		{"kind", event.Kind},
		{"status", event.Status},
		{"schedule", event.Schedule},
		{"expression", event.Expression},
		{"description", event.Description},
		{"scheduled for", event.ScheduledFor},
		{"dest", event.Dest},
		{"bytes", formatBytes(event.Bytes)},
		{"duration", event.Duration},
		{"error", event.Error},
	} {
		if f.value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", f.label, f.value)
		}
	}
	_ = tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func formatBytes(n int64) string {
	if n <= 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}
