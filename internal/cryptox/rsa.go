// Package cryptox contains the RSA primitives MailProof is built on:
// key generation, RSA-PSS/SHA-256 signatures, RSA-OAEP/SHA-256 encryption,
// and the hex signature wire form.
package cryptox

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// KeyBits is the modulus size of every generated key.
	KeyBits = 2048

	// MaxSignatureHexLen bounds hex signatures accepted for verification
	// (a 4096-bit key yields 1024 hex characters).
	MaxSignatureHexLen = 1024
)

var (
	ErrSignatureMismatch  = errors.New("signature mismatch")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrMalformedKey       = errors.New("malformed key")
	ErrUnsupportedKey     = errors.New("unsupported key type")
	ErrInputTooLarge      = errors.New("input too large")
)

// Random is the entropy source for key generation, PSS salts and OAEP.
// Tests may replace it.
var Random io.Reader = rand.Reader

// pssOptions selects the largest salt the key permits when signing and
// auto-detects the salt length when verifying.
var pssOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: crypto.SHA256}

// GenerateKey returns a fresh KeyBits RSA key with public exponent 65537.
func GenerateKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(Random, KeyBits)
}

// SignPSS signs SHA-256(message) with RSA-PSS (MGF1-SHA-256). The salt is
// random, so repeated calls over the same message yield different signatures.
func SignPSS(key *rsa.PrivateKey, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPSS(Random, key, crypto.SHA256, digest[:], pssOptions)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// VerifyPSS checks an RSA-PSS/SHA-256 signature over the exact message bytes.
// Any cryptographic failure is reported as ErrSignatureMismatch.
func VerifyPSS(pub *rsa.PublicKey, message, signature []byte) error {
	if pub == nil {
		return ErrMalformedKey
	}
	digest := sha256.Sum256(message)
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], signature, pssOptions); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	return nil
}

// EncryptOAEP encrypts message for the holder of pub using RSA-OAEP/SHA-256.
func EncryptOAEP(pub *rsa.PublicKey, message []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), Random, pub, message, nil)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return ct, nil
}

// DecryptOAEP reverses EncryptOAEP.
func DecryptOAEP(key *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), nil, key, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return pt, nil
}

// EncodeSignature returns the canonical wire form: lowercase hex.
func EncodeSignature(sig []byte) string {
	return hex.EncodeToString(sig)
}

// DecodeSignature parses a hex signature. Upper-case digits are accepted;
// whitespace, odd lengths and oversized input are not.
func DecodeSignature(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedSignature)
	}
	if len(s) > MaxSignatureHexLen {
		return nil, fmt.Errorf("%w: signature is %d hex chars", ErrInputTooLarge, len(s))
	}
	sig, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return sig, nil
}
