package proof

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBuilder() *Builder {
	at := time.Date(2024, 1, 1, 12, 30, 0, 123456789, time.FixedZone("CET", 3600))
	return NewBuilder(
		WithClock(func() time.Time { return at }),
		WithIDSource(func() string { return "0b8e6f0e-6c1a-4f43-9a57-6d2f2c8e1a11" }),
	)
}

func TestBuild_Format(t *testing.T) {
	tok, err := fixedBuilder().Build("alice@example.com", "I'm a developer.")
	require.NoError(t, err)

	assert.Equal(t,
		"0b8e6f0e-6c1a-4f43-9a57-6d2f2c8e1a11|2024-01-01T11:30:00.123456789Z|alice@example.com|I'm a developer.",
		tok.Message)
	assert.Equal(t, time.UTC, tok.IssuedAt.Location())
}

func TestBuild_EmptyAnnotationKeepsFourFields(t *testing.T) {
	tok, err := fixedBuilder().Build("alice@example.com", "")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(tok.Message, "|alice@example.com|"))
	assert.Len(t, strings.Split(tok.Message, Separator), 4)
}

func TestBuild_FreshEachCall(t *testing.T) {
	b := NewBuilder()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		tok, err := b.Build("alice@example.com", "x")
		require.NoError(t, err)
		assert.False(t, seen[tok.ID], "nonce reused")
		assert.False(t, seen[tok.Message], "message reused")
		seen[tok.ID] = true
		seen[tok.Message] = true
	}
}

func TestBuild_RejectsBadIdentity(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build("", "x")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = b.Build("a|b@example.com", "x")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestParse_RoundTrip(t *testing.T) {
	tok, err := fixedBuilder().Build("alice@example.com", "quote | with pipe")
	require.NoError(t, err)

	got, err := Parse(tok.Message)
	require.NoError(t, err)

	assert.Equal(t, tok.ID, got.ID)
	assert.True(t, tok.IssuedAt.Equal(got.IssuedAt))
	assert.Equal(t, tok.Identity, got.Identity)
	assert.Equal(t, "quote | with pipe", got.Annotation)
	assert.Equal(t, tok.Message, got.Message)
	assert.Equal(t, tok.Display(), got.Display())
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"too few fields", "abc|2024-01-01T00:00:00Z|alice@example.com"},
		{"bad uuid", "abc-123|2024-01-01T00:00:00Z|alice@example.com|x"},
		{"bad time", "0b8e6f0e-6c1a-4f43-9a57-6d2f2c8e1a11|2024-01-01 00:00:00|alice@example.com|x"},
		{"non canonical time", "0b8e6f0e-6c1a-4f43-9a57-6d2f2c8e1a11|2024-01-01T00:00:00+00:00|alice@example.com|x"},
		{"empty identity", "0b8e6f0e-6c1a-4f43-9a57-6d2f2c8e1a11|2024-01-01T00:00:00Z||x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.msg)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestDisplay_ObfuscatesIdentityOnly(t *testing.T) {
	tok, err := fixedBuilder().Build("alice.smith@example.com", "v1.2 @home")
	require.NoError(t, err)

	want := "0b8e6f0e-6c1a-4f43-9a57-6d2f2c8e1a11|2024-01-01T11:30:00.123456789Z|" +
		"alice&#173;.smith&#173;@example&#173;.com|v1.2 @home"
	assert.Equal(t, want, tok.Display())

	// the signed form is untouched
	assert.Contains(t, tok.Message, "|alice.smith@example.com|")
}

func TestDisplay_ForeignMessageIsReturnedAsIs(t *testing.T) {
	tok := Token{ID: "x", Identity: "a@b.c", Message: "something else"}
	assert.Equal(t, "something else", tok.Display())
}
