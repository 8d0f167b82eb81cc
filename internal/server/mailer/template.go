package mailer

import (
	_ "embed"
	"fmt"
	"html"
	"os"
	"strings"
)

// Placeholder delimiters.
const (
	FieldStart   = "{{"
	FieldEnd     = "}}"
	SectionStart = "<!--"
	SectionEnd   = "-->"
)

//go:embed templates/signature.html
var defaultTemplate string

// FillTemplate replaces every "<startTag> key <endTag>" occurrence with the
// matching field value. Unknown placeholders are left as they are.
func FillTemplate(tmpl, startTag, endTag string, fields map[string]string) string {
	pairs := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		pairs = append(pairs, startTag+" "+k+" "+endTag, v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// softHyphen is the marker the display form of a proof token carries.
const softHyphen = "&#173;"

// ProofElement renders the PS paragraph carrying the displayed proof token.
// Everything except the soft hyphen markers is escaped.
func ProofElement(display string) string {
	parts := strings.Split(display, softHyphen)
	for i, p := range parts {
		parts[i] = html.EscapeString(p)
	}
	return fmt.Sprintf("<p><i>This was used to sign the email: <u>%s</u></i></p>", strings.Join(parts, softHyphen))
}

// RenderInput is everything a signature template can reference.
type RenderInput struct {
	Profile Profile
	Body    string

	// Message is the signed token, Display its obfuscated form.
	Message   string
	Display   string
	Signature string
	ProofID   string
	SelfURL   string

	// TemplatePath overrides the built-in template when set.
	TemplatePath string
}

// Render fills the signature template.
//
// Sections (EMAIL_CONTENT, PS) use the "<!-- NAME -->" form and are filled
// first; field placeholders use "{{ name }}". The body is trusted HTML, the
// profile fields are escaped.
func Render(in RenderInput) (string, error) {
	tmpl := defaultTemplate
	if in.TemplatePath != "" {
		data, err := os.ReadFile(in.TemplatePath)
		if err != nil {
			return "", fmt.Errorf("read signature template: %w", err)
		}
		tmpl = string(data)
	}

	out := FillTemplate(tmpl, SectionStart, SectionEnd, map[string]string{
		"EMAIL_CONTENT": in.Body,
		"PS":            ProofElement(in.Display),
	})

	fields := in.Profile.Fields()
	for k, v := range fields {
		fields[k] = html.EscapeString(v)
	}
	fields["signature"] = in.Signature
	fields["message"] = html.EscapeString(in.Message)
	fields["verified_href"] = in.ProofID
	fields["self_url"] = strings.TrimRight(in.SelfURL, "/")

	return FillTemplate(out, FieldStart, FieldEnd, fields), nil
}
