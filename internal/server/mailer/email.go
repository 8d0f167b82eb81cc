package mailer

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mailproof/internal/common"
)

// Base64BodyPrefix marks a message body that is base64 encoded.
const Base64BodyPrefix = "base64:"

// Email is one outgoing message before rendering.
type Email struct {
	Subject    string
	Body       string
	Recipients []string
	CC         []string
	BCC        []string
	// ReplyTo is a Message-ID; it becomes In-Reply-To and References.
	ReplyTo string
}

// NewEmail builds an Email, decoding a body that starts with Base64BodyPrefix.
func NewEmail(subject, body string, to, cc, bcc []string, replyTo string) (*Email, error) {
	if strings.HasPrefix(body, Base64BodyPrefix) {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(body, Base64BodyPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: body is not valid base64: %v", common.ErrorValidation, err)
		}
		body = string(raw)
	}

	return &Email{
		Subject:    subject,
		Body:       body,
		Recipients: to,
		CC:         cc,
		BCC:        bcc,
		ReplyTo:    replyTo,
	}, nil
}

// Validate requires a subject, a body and at least one recipient. Values that
// end up in header fields must be single-line.
func (e *Email) Validate() error {
	switch {
	case e.Subject == "":
		return fmt.Errorf("%w: subject is required", common.ErrorValidation)
	case strings.ContainsAny(e.Subject, "\r\n"):
		return fmt.Errorf("%w: subject must be a single line", common.ErrorValidation)
	case strings.ContainsAny(e.ReplyTo, "\r\n"):
		return fmt.Errorf("%w: invalid reply-to %q", common.ErrorValidation, e.ReplyTo)
	case e.Body == "":
		return fmt.Errorf("%w: message body is required", common.ErrorValidation)
	case len(e.AllRecipients()) == 0:
		return fmt.Errorf("%w: at least one recipient is required", common.ErrorValidation)
	}

	for _, r := range e.AllRecipients() {
		if strings.ContainsAny(r, "\r\n") || !strings.Contains(r, "@") {
			return fmt.Errorf("%w: invalid recipient %q", common.ErrorValidation, r)
		}
	}
	return nil
}

// AllRecipients returns To, Cc and Bcc addresses in that order.
func (e *Email) AllRecipients() []string {
	all := make([]string, 0, len(e.Recipients)+len(e.CC)+len(e.BCC))
	all = append(all, e.Recipients...)
	all = append(all, e.CC...)
	all = append(all, e.BCC...)
	return all
}
