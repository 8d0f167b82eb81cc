package keystore

import "fmt"

// KeyLoadError reports stored key material that exists but cannot be read
// or parsed. The key is never regenerated in this case: doing so would
// invalidate every signature the identity has produced.
type KeyLoadError struct {
	Identity string
	Err      error
}

func (e *KeyLoadError) Error() string {
	return fmt.Sprintf("load key for %q: %v", e.Identity, e.Err)
}

func (e *KeyLoadError) Unwrap() error { return e.Err }

// KeyCreationError reports a failure to generate or persist a new key.
// Callers may retry.
type KeyCreationError struct {
	Identity string
	Err      error
}

func (e *KeyCreationError) Error() string {
	return fmt.Sprintf("create key for %q: %v", e.Identity, e.Err)
}

func (e *KeyCreationError) Unwrap() error { return e.Err }
