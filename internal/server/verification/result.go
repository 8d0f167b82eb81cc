package verification

// Status is the tri-state outcome of a verification.
type Status int

const (
	// Error means the request could not be evaluated (bad input, key load failure).
	Error Status = iota
	// Valid means the signature matches the message and key.
	Valid
	// Invalid means the signature does not match, or the identity has no key.
	Invalid
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "verified"
	case Invalid:
		return "not-verified"
	default:
		return "error"
	}
}

// Reason says why a result is not Valid.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonSignatureMismatch Reason = "signature_mismatch"
	ReasonUnknownIdentity   Reason = "unknown_identity"
	ReasonMalformedInput    Reason = "malformed_input"
	ReasonKeyLoad           Reason = "key_load"
)

// Result is what every verification entry point returns. It is never
// accompanied by a Go error.
type Result struct {
	Status Status
	Reason Reason
	// Detail is a human-readable diagnostic for non-valid results.
	Detail string
}

// Verified reports whether the signature was valid.
func (r Result) Verified() bool {
	return r.Status == Valid
}

func valid() Result {
	return Result{Status: Valid}
}

func invalid(reason Reason, detail string) Result {
	return Result{Status: Invalid, Reason: reason, Detail: detail}
}

func failed(reason Reason, detail string) Result {
	return Result{Status: Error, Reason: reason, Detail: detail}
}
