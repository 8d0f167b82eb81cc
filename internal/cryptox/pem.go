package cryptox

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

const (
	pemPrivateKey    = "PRIVATE KEY"
	pemRSAPrivateKey = "RSA PRIVATE KEY"
	pemPublicKey     = "PUBLIC KEY"
	pemRSAPublicKey  = "RSA PUBLIC KEY"

	// MaxPublicKeySize bounds caller-supplied public keys.
	MaxPublicKeySize = 16 << 10
)

// KeyEncoding names the wrapping of a public key supplied by a caller.
type KeyEncoding string

const (
	// KeyEncodingPEM is a bare PEM block.
	KeyEncodingPEM KeyEncoding = "pem"
	// KeyEncodingBase64 is a PEM block wrapped once more in standard base64,
	// the form used when embedding keys in JSON or HTML.
	KeyEncodingBase64 KeyEncoding = "base64"
)

// ParseKeyEncoding maps a wire value to a KeyEncoding. Empty selects base64.
func ParseKeyEncoding(s string) (KeyEncoding, error) {
	switch KeyEncoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyEncodingBase64:
		return KeyEncodingBase64, nil
	case KeyEncodingPEM:
		return KeyEncodingPEM, nil
	default:
		return "", fmt.Errorf("%w: unknown key encoding %q", ErrMalformedKey, s)
	}
}

// EncodePrivateKeyPEM serializes key as an unencrypted PKCS#8 PEM block.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
}

// DecodePrivateKeyPEM parses a PKCS#8 (or legacy PKCS#1) PEM private key.
// The key must be RSA and pass rsa.PrivateKey.Validate.
func DecodePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrMalformedKey)
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case pemPrivateKey:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		k, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, parsed)
		}
		key = k
	case pemRSAPrivateKey:
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		key = k
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrMalformedKey, block.Type)
	}

	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return key, nil
}

// EncodePublicKeyPEM serializes pub as a SubjectPublicKeyInfo PEM block.
func EncodePublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der})), nil
}

// DecodePublicKeyPEM parses a SubjectPublicKeyInfo or PKCS#1 PEM RSA public key.
func DecodePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrMalformedKey)
	}

	switch block.Type {
	case pemPublicKey:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		pub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, parsed)
		}
		return pub, nil
	case pemRSAPublicKey:
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrMalformedKey, block.Type)
	}
}

// DecodePublicKey unwraps a caller-supplied public key in the given encoding.
func DecodePublicKey(encoded string, enc KeyEncoding) (*rsa.PublicKey, error) {
	if len(encoded) > MaxPublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrInputTooLarge, len(encoded))
	}

	switch enc {
	case KeyEncodingPEM:
		return DecodePublicKeyPEM([]byte(encoded))
	case KeyEncodingBase64:
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrMalformedKey, err)
		}
		return DecodePublicKeyPEM(raw)
	default:
		return nil, fmt.Errorf("%w: unknown key encoding %q", ErrMalformedKey, enc)
	}
}

// EncodePublicKeyBase64 wraps a PEM public key in standard base64.
func EncodePublicKeyBase64(pemKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(pemKey))
}
