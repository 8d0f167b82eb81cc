package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Compose renders an RFC 5322 message with a single quoted-printable HTML
// part. Bcc addresses are never written into the headers.
func Compose(from string, email *Email, htmlBody string) []byte {
	return compose(from, email, htmlBody, time.Now(), uuid.NewString())
}

func compose(from string, email *Email, htmlBody string, now time.Time, id string) []byte {
	var b bytes.Buffer

	header := func(k, v string) {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}

	domain := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		domain = from[i+1:]
	}

	header("From", from)
	if len(email.Recipients) > 0 {
		header("To", strings.Join(email.Recipients, ", "))
	}
	if len(email.CC) > 0 {
		header("Cc", strings.Join(email.CC, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", id, domain))
	if email.ReplyTo != "" {
		header("In-Reply-To", email.ReplyTo)
		header("References", email.ReplyTo)
	}
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	header("Content-Transfer-Encoding", "quoted-printable")
	b.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&b)
	_, _ = qp.Write([]byte(htmlBody))
	_ = qp.Close()

	return b.Bytes()
}
