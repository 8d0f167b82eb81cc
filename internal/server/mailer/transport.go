package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/logging"
)

// Transport delivers a composed message.
type Transport interface {
	Send(ctx context.Context, from, password string, to []string, msg []byte) error
}

// Environments in which mail is actually delivered.
const (
	EnvProd = "prod"
	EnvTest = "test"
)

// NewTransport returns an SMTPTransport in prod and test, and a
// DryRunTransport everywhere else.
func NewTransport(env, host string, port int, log logging.Logger) Transport {
	if env == EnvProd || env == EnvTest {
		return &SMTPTransport{Host: host, Port: port, Timeout: 30 * time.Second}
	}
	return &DryRunTransport{log: log.With("module", "mailer")}
}

// smtpDial is swapped in tests.
var smtpDial = func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "tcp", addr)
}

// SMTPTransport sends through a relay with STARTTLS and PLAIN auth.
type SMTPTransport struct {
	Host    string
	Port    int
	Timeout time.Duration

	// TLSConfig overrides the default client TLS settings.
	TLSConfig *tls.Config
}

func (t *SMTPTransport) Send(ctx context.Context, from, password string, to []string, msg []byte) error {
	addr := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))

	conn, err := smtpDial(ctx, addr, t.Timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if t.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.Timeout))
	}

	c, err := smtp.NewClient(conn, t.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := t.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: t.Host, MinVersion: tls.VersionTLS12}
		}
		if err := c.StartTLS(cfg); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if password != "" {
		if err := c.Auth(smtp.PlainAuth("", from, password, t.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp DATA close: %w", err)
	}

	return c.Quit()
}

// DryRunTransport logs the delivery instead of performing it.
type DryRunTransport struct {
	log logging.Logger
}

func NewDryRunTransport(log logging.Logger) *DryRunTransport {
	return &DryRunTransport{log: log}
}

func (t *DryRunTransport) Send(ctx context.Context, from, _ string, to []string, msg []byte) error {
	t.log.Info(ctx, "mail not sent outside prod and test",
		"from", from,
		"recipients", to,
		"size", len(msg),
	)
	return nil
}
