// Package proof builds the canonical proof token strings that MailProof signs.
//
// A token message has exactly four fields joined by Separator:
//
//	<uuid>|<RFC 3339 UTC timestamp with nanoseconds>|<identity>|<annotation>
//
// The annotation is last, so it may be empty or contain the separator itself.
// The message is signed and verified byte for byte; Display produces a copy
// for embedding into rendered mail and must never be verified.
package proof

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Separator joins token fields.
const Separator = "|"

// TimeLayout is the timestamp format inside a token.
const TimeLayout = time.RFC3339Nano

const softHyphen = "&#173;"

var ErrMalformedToken = errors.New("malformed proof token")

// Token is one signing event. It is never persisted.
type Token struct {
	ID         string
	IssuedAt   time.Time
	Identity   string
	Annotation string
	// Message is the exact string that is signed.
	Message string
}

// Display returns Message with a soft hyphen entity inserted before every
// "@" and "." of the identity field, which keeps scrapers from lifting the
// address out of rendered mail. The other fields are left as they are.
func (t Token) Display() string {
	prefix := t.ID + Separator + t.IssuedAt.Format(TimeLayout) + Separator
	if !strings.HasPrefix(t.Message, prefix+t.Identity+Separator) {
		return t.Message
	}

	obfuscated := strings.NewReplacer("@", softHyphen+"@", ".", softHyphen+".").Replace(t.Identity)
	return prefix + obfuscated + t.Message[len(prefix)+len(t.Identity):]
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithIDSource replaces the random UUID source.
func WithIDSource(newID func() string) Option {
	return func(b *Builder) { b.newID = newID }
}

// Builder creates tokens with a fresh ID and timestamp on every call.
type Builder struct {
	now   func() time.Time
	newID func() string
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build returns a new token for identity. The identity must not contain
// Separator; the annotation may.
func (b *Builder) Build(identity, annotation string) (Token, error) {
	if identity == "" {
		return Token{}, fmt.Errorf("%w: empty identity", ErrMalformedToken)
	}
	if strings.Contains(identity, Separator) {
		return Token{}, fmt.Errorf("%w: identity contains %q", ErrMalformedToken, Separator)
	}

	t := Token{
		ID:         b.newID(),
		IssuedAt:   b.now().UTC(),
		Identity:   identity,
		Annotation: annotation,
	}
	t.Message = strings.Join([]string{t.ID, t.IssuedAt.Format(TimeLayout), t.Identity, t.Annotation}, Separator)
	return t, nil
}

// Parse splits a token message back into its fields. It accepts exactly what
// Build produces.
func Parse(message string) (Token, error) {
	parts := strings.SplitN(message, Separator, 4)
	if len(parts) != 4 {
		return Token{}, fmt.Errorf("%w: want 4 fields, got %d", ErrMalformedToken, len(parts))
	}

	if _, err := uuid.Parse(parts[0]); err != nil {
		return Token{}, fmt.Errorf("%w: id: %v", ErrMalformedToken, err)
	}

	issued, err := time.Parse(TimeLayout, parts[1])
	if err != nil {
		return Token{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedToken, err)
	}
	if issued.Format(TimeLayout) != parts[1] {
		return Token{}, fmt.Errorf("%w: timestamp %q is not canonical", ErrMalformedToken, parts[1])
	}

	if parts[2] == "" {
		return Token{}, fmt.Errorf("%w: empty identity", ErrMalformedToken)
	}

	return Token{
		ID:         parts[0],
		IssuedAt:   issued,
		Identity:   parts[2],
		Annotation: parts[3],
		Message:    message,
	}, nil
}
