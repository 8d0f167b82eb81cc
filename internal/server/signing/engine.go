// Package signing performs the cryptographic operations of one identity's
// keypair: RSA-PSS/SHA-256 signatures and public key export.
package signing

import (
	"encoding/hex"
	"errors"

	"github.com/dmitrijs2005/mailproof/internal/cryptox"
	"github.com/dmitrijs2005/mailproof/internal/server/models"
)

var ErrNoKey = errors.New("engine has no key")

// Engine holds one keypair for the duration of an operation. It is safe for
// concurrent use; no method blocks on I/O.
type Engine struct {
	kp *models.KeyPair
}

func NewEngine(kp *models.KeyPair) *Engine {
	return &Engine{kp: kp}
}

func (e *Engine) Identity() string {
	if e.kp == nil {
		return ""
	}
	return e.kp.Identity
}

// Sign returns a randomized RSA-PSS signature over message. Two calls over
// the same message give different bytes that both verify.
func (e *Engine) Sign(message []byte) ([]byte, error) {
	if e.kp == nil || e.kp.Private == nil {
		return nil, ErrNoKey
	}
	return cryptox.SignPSS(e.kp.Private, message)
}

// VerifyRaw reports whether signature is valid for message under the
// engine's public key. Every failure is reported as false.
func (e *Engine) VerifyRaw(signature, message []byte) bool {
	if e.kp == nil || e.kp.Private == nil {
		return false
	}
	return cryptox.VerifyPSS(e.kp.Public(), message, signature) == nil
}

// ExportPublicKey returns the SPKI PEM encoding of the public key.
func (e *Engine) ExportPublicKey() (string, error) {
	if e.kp == nil || e.kp.Private == nil {
		return "", ErrNoKey
	}
	return cryptox.EncodePublicKeyPEM(e.kp.Public())
}

// CreateProofSignature signs token and returns the lowercase hex signature
// that is embedded in outgoing mail.
func (e *Engine) CreateProofSignature(token string) (string, error) {
	sig, err := e.Sign([]byte(token))
	if err != nil {
		return "", err
	}
	return cryptox.EncodeSignature(sig), nil
}

// Encrypt encrypts message to the engine's own public key with RSA-OAEP
// and returns hex ciphertext.
func (e *Engine) Encrypt(message string) (string, error) {
	if e.kp == nil || e.kp.Private == nil {
		return "", ErrNoKey
	}
	ct, err := cryptox.EncryptOAEP(e.kp.Public(), []byte(message))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt.
func (e *Engine) Decrypt(hexCiphertext string) (string, error) {
	if e.kp == nil || e.kp.Private == nil {
		return "", ErrNoKey
	}
	ct, err := hex.DecodeString(hexCiphertext)
	if err != nil {
		return "", err
	}
	pt, err := cryptox.DecryptOAEP(e.kp.Private, ct)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
