package mailer

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNewTransport(t *testing.T) {
	for _, env := range []string{EnvProd, EnvTest} {
		tr := NewTransport(env, "smtp.example.com", 587, logging.Nop{})
		s, ok := tr.(*SMTPTransport)
		require.True(t, ok, env)
		assert.Equal(t, "smtp.example.com", s.Host)
		assert.Equal(t, 587, s.Port)
	}

	_, ok := NewTransport("dev", "smtp.example.com", 587, logging.Nop{}).(*DryRunTransport)
	assert.True(t, ok)
}

func TestDryRunTransport_Send(t *testing.T) {
	tr := NewDryRunTransport(logging.Nop{})
	assert.NoError(t, tr.Send(context.Background(), "a@b.c", "pw", []string{"d@e.f"}, []byte("msg")))
}

// fakeSMTP speaks just enough SMTP for a plaintext session without auth.
func fakeSMTP(t *testing.T, conn net.Conn, rcptCode int) <-chan []string {
	t.Helper()
	done := make(chan []string, 1)

	go func() {
		defer conn.Close()
		var cmds []string
		defer func() { done <- cmds }()

		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 fake ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmds = append(cmds, line)
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch verb {
			case "EHLO", "HELO":
				_ = tp.PrintfLine("250 fake")
			case "MAIL":
				_ = tp.PrintfLine("250 ok")
			case "RCPT":
				if rcptCode != 250 {
					_ = tp.PrintfLine("%d no such user", rcptCode)
					continue
				}
				_ = tp.PrintfLine("250 ok")
			case "DATA":
				_ = tp.PrintfLine("354 go ahead")
				body, err := tp.ReadDotLines()
				if err != nil {
					return
				}
				cmds = append(cmds, "BODY:"+strings.Join(body, "\n"))
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()

	return done
}

func withPipeDial(t *testing.T, rcptCode int) <-chan []string {
	t.Helper()
	client, server := net.Pipe()
	done := fakeSMTP(t, server, rcptCode)

	orig := smtpDial
	smtpDial = func(context.Context, string, time.Duration) (net.Conn, error) { return client, nil }
	t.Cleanup(func() { smtpDial = orig })

	return done
}

func TestSMTPTransport_Send(t *testing.T) {
	done := withPipeDial(t, 250)

	tr := &SMTPTransport{Host: "localhost", Port: 25, Timeout: 5 * time.Second}
	err := tr.Send(context.Background(), "alice@example.com", "", []string{"bob@example.com", "eve@example.com"},
		[]byte("Subject: hi\r\n\r\nhello\r\n"))
	require.NoError(t, err)

	cmds := <-done
	assert.Contains(t, cmds, "MAIL FROM:<alice@example.com>")
	assert.Contains(t, cmds, "RCPT TO:<bob@example.com>")
	assert.Contains(t, cmds, "RCPT TO:<eve@example.com>")
	assert.Contains(t, cmds, "BODY:Subject: hi\n\nhello")
	assert.Equal(t, "QUIT", cmds[len(cmds)-1])
}

func TestSMTPTransport_RecipientRejected(t *testing.T) {
	withPipeDial(t, 550)

	tr := &SMTPTransport{Host: "localhost", Port: 25, Timeout: 5 * time.Second}
	err := tr.Send(context.Background(), "alice@example.com", "", []string{"nobody@example.com"}, []byte("x\r\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RCPT TO nobody@example.com")

	var tpErr *textproto.Error
	require.True(t, errors.As(err, &tpErr))
	assert.Equal(t, 550, tpErr.Code)
}

func TestSMTPTransport_DialError(t *testing.T) {
	orig := smtpDial
	smtpDial = func(context.Context, string, time.Duration) (net.Conn, error) {
		return nil, errors.New("refused")
	}
	t.Cleanup(func() { smtpDial = orig })

	tr := &SMTPTransport{Host: "localhost", Port: 25}
	err := tr.Send(context.Background(), "a@b.c", "", []string{"d@e.f"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to SMTP server")
}

