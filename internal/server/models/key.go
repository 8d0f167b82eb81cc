package models

import (
	"crypto/rsa"
	"time"
)

// KeyPair is the durable signing key of one identity. The private half stays
// inside the server process: it is never serialized into responses or logs.
type KeyPair struct {
	Identity string
	Private  *rsa.PrivateKey
}

// Public returns the shareable half of the pair.
func (k *KeyPair) Public() *rsa.PublicKey {
	return &k.Private.PublicKey
}

// StoredKey is a private key record as held by a key repository.
type StoredKey struct {
	// Name is the storage name derived from the identity.
	Name string
	// PEM is the unencrypted PKCS#8 encoding of the private key.
	PEM       []byte
	CreatedAt time.Time
}

// String hides the key material when a record ends up in a log line.
func (s StoredKey) String() string {
	return "StoredKey{" + s.Name + "}"
}
