// Package verification answers whether a message was signed by a given
// identity or public key. It never touches private key material beyond
// deriving the public half from a stored keypair, and it never creates keys.
package verification

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/cryptox"
	"github.com/dmitrijs2005/mailproof/internal/logging"
	"github.com/dmitrijs2005/mailproof/internal/server/models"
)

// MaxMessageSize bounds the message accepted for verification.
const MaxMessageSize = 64 << 10

// KeyLookup finds an identity's stored keypair without creating one.
// Unknown identities yield common.ErrorNotFound.
type KeyLookup interface {
	Lookup(ctx context.Context, identity string) (*models.KeyPair, error)
}

// Observer is notified of every verification outcome.
type Observer interface {
	Verified(method string, r Result)
}

const (
	MethodIdentity  = "identity"
	MethodPublicKey = "public_key"
)

type Service struct {
	keys     KeyLookup
	log      logging.Logger
	observer Observer
}

func NewService(keys KeyLookup, log logging.Logger) *Service {
	return &Service{keys: keys, log: log.With("module", "verification")}
}

// SetObserver registers o for outcome notifications.
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// VerifyByIdentity checks hexSignature over message against the stored key
// of identity.
func (s *Service) VerifyByIdentity(ctx context.Context, identity, message, hexSignature string) Result {
	r := s.verifyByIdentity(ctx, identity, message, hexSignature)
	s.report(ctx, MethodIdentity, r, "identity", identity)
	return r
}

func (s *Service) verifyByIdentity(ctx context.Context, identity, message, hexSignature string) Result {
	sig, r, ok := decodeInput(message, hexSignature)
	if !ok {
		return r
	}

	kp, err := s.keys.Lookup(ctx, identity)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return invalid(ReasonUnknownIdentity, fmt.Sprintf("no key on record for %s", identity))
	case errors.Is(err, common.ErrorInvalidIdentity):
		return failed(ReasonMalformedInput, err.Error())
	case err != nil:
		return failed(ReasonKeyLoad, "stored key could not be loaded")
	}

	return check(kp.Public(), message, sig)
}

// VerifyByPublicKey checks hexSignature over message against a caller
// supplied public key. encoding is "pem" or "base64" (base64-wrapped PEM);
// empty selects base64.
func (s *Service) VerifyByPublicKey(ctx context.Context, encodedKey, encoding, message, hexSignature string) Result {
	r := s.verifyByPublicKey(encodedKey, encoding, message, hexSignature)
	s.report(ctx, MethodPublicKey, r)
	return r
}

func (s *Service) verifyByPublicKey(encodedKey, encoding, message, hexSignature string) Result {
	sig, r, ok := decodeInput(message, hexSignature)
	if !ok {
		return r
	}

	enc, err := cryptox.ParseKeyEncoding(encoding)
	if err != nil {
		return failed(ReasonMalformedInput, err.Error())
	}

	pub, err := cryptox.DecodePublicKey(encodedKey, enc)
	if err != nil {
		return failed(ReasonMalformedInput, fmt.Sprintf("public key: %v", err))
	}

	return check(pub, message, sig)
}

func decodeInput(message, hexSignature string) ([]byte, Result, bool) {
	if len(message) > MaxMessageSize {
		return nil, failed(ReasonMalformedInput, fmt.Sprintf("message exceeds %d bytes", MaxMessageSize)), false
	}
	sig, err := cryptox.DecodeSignature(hexSignature)
	if err != nil {
		return nil, failed(ReasonMalformedInput, fmt.Sprintf("signature: %v", err)), false
	}
	return sig, Result{}, true
}

func check(pub *rsa.PublicKey, message string, sig []byte) Result {
	if err := cryptox.VerifyPSS(pub, []byte(message), sig); err != nil {
		return invalid(ReasonSignatureMismatch, "signature does not match message")
	}
	return valid()
}

func (s *Service) report(ctx context.Context, method string, r Result, kv ...any) {
	if s.observer != nil {
		s.observer.Verified(method, r)
	}

	args := append([]any{"method", method, "status", r.Status.String()}, kv...)
	switch r.Reason {
	case ReasonNone:
		s.log.Debug(ctx, "signature verified", args...)
	case ReasonUnknownIdentity:
		s.log.Info(ctx, "verification for unknown identity", args...)
	case ReasonSignatureMismatch:
		s.log.Info(ctx, "signature mismatch", args...)
	case ReasonKeyLoad:
		s.log.Error(ctx, "verification key load failed", append(args, "detail", r.Detail)...)
	default:
		s.log.Warn(ctx, "verification input rejected", append(args, "reason", string(r.Reason), "detail", r.Detail)...)
	}
}
