// Package mailer renders outgoing mail with an embedded proof and hands it
// to an SMTP relay.
package mailer

// Profile describes the sender as shown in the signature block.
type Profile struct {
	Name      string
	Email     string
	Role      string
	LatinName string
	LatinRole string

	// Extra holds additional template fields. Keys are used verbatim as
	// placeholder names and override the fixed fields on collision.
	Extra map[string]string
}

// Fields returns the template fields of the profile.
func (p Profile) Fields() map[string]string {
	fields := map[string]string{
		"main_name":  p.Name,
		"email":      p.Email,
		"main_role":  p.Role,
		"latin_name": p.LatinName,
		"latin_role": p.LatinRole,
	}
	for k, v := range p.Extra {
		fields[k] = v
	}
	return fields
}
