// Package keystore maps identities to durable RSA keypairs.
//
// Resolve creates a key on first use and loads it afterwards; Lookup and
// Exists never create. Creation is serialized per identity inside the process
// by a lock and across processes by the repository's exclusive create, so
// exactly one key becomes authoritative for an identity.
package keystore

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/cryptox"
	"github.com/dmitrijs2005/mailproof/internal/logging"
	"github.com/dmitrijs2005/mailproof/internal/server/models"
	"github.com/dmitrijs2005/mailproof/internal/server/repositories/keys"
)

// Observer receives key lifecycle events, typically for metrics.
type Observer interface {
	KeyCreated()
	KeyResolved(d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) KeyCreated()                      {}
func (nopObserver) KeyResolved(time.Duration, error) {}

type Option func(*KeyStore)

// WithCache keeps loaded keypairs in memory, keyed by the full identity.
func WithCache(enabled bool) Option {
	return func(s *KeyStore) { s.cacheEnabled = enabled }
}

func WithObserver(o Observer) Option {
	return func(s *KeyStore) { s.observer = o }
}

func WithLogger(l logging.Logger) Option {
	return func(s *KeyStore) { s.log = l }
}

// WithKeyGenerator replaces cryptox.GenerateKey.
func WithKeyGenerator(fn func() (*rsa.PrivateKey, error)) Option {
	return func(s *KeyStore) { s.generate = fn }
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

type KeyStore struct {
	repo     keys.Repository
	log      logging.Logger
	observer Observer
	generate func() (*rsa.PrivateKey, error)

	locksMu sync.Mutex
	locks   map[string]*identityLock

	cacheEnabled bool
	cacheMu      sync.RWMutex
	cache        map[string]*models.KeyPair
}

func New(repo keys.Repository, opts ...Option) *KeyStore {
	s := &KeyStore{
		repo:     repo,
		log:      logging.Nop{},
		observer: nopObserver{},
		generate: cryptox.GenerateKey,
		locks:    map[string]*identityLock{},
		cache:    map[string]*models.KeyPair{},
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("module", "keystore")
	return s
}

// Resolve returns the identity's keypair, creating and persisting one if
// none is stored. An existing key is never overwritten. Stored data that
// cannot be parsed yields *KeyLoadError; a failed generation or write yields
// *KeyCreationError.
func (s *KeyStore) Resolve(ctx context.Context, identity string) (kp *models.KeyPair, err error) {
	id, err := NormalizeIdentity(identity)
	if err != nil {
		return nil, err
	}
	if kp := s.cached(id); kp != nil {
		return kp, nil
	}

	start := time.Now()
	defer func() { s.observer.KeyResolved(time.Since(start), err) }()

	unlock := s.lock(id)
	defer unlock()

	if kp := s.cached(id); kp != nil {
		return kp, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := Name(id)

	kp, err = s.load(ctx, id, name)
	if err == nil {
		s.store(kp)
		return kp, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	kp, err = s.create(ctx, id, name)
	if err != nil {
		return nil, err
	}
	s.store(kp)
	return kp, nil
}

// Lookup returns the stored keypair without ever creating one. An unknown
// identity yields common.ErrorNotFound.
func (s *KeyStore) Lookup(ctx context.Context, identity string) (*models.KeyPair, error) {
	id, err := NormalizeIdentity(identity)
	if err != nil {
		return nil, err
	}
	if kp := s.cached(id); kp != nil {
		return kp, nil
	}

	unlock := s.lock(id)
	defer unlock()

	if kp := s.cached(id); kp != nil {
		return kp, nil
	}

	kp, err := s.load(ctx, id, Name(id))
	if err != nil {
		return nil, err
	}
	s.store(kp)
	return kp, nil
}

// Exists reports whether a key is stored for identity. It never creates one.
func (s *KeyStore) Exists(ctx context.Context, identity string) (bool, error) {
	id, err := NormalizeIdentity(identity)
	if err != nil {
		return false, err
	}
	if s.cached(id) != nil {
		return true, nil
	}
	return s.repo.Exists(ctx, Name(id))
}

// PublicKeyPEM returns the identity's public key as SPKI PEM, or
// common.ErrorNotFound when no key is stored.
func (s *KeyStore) PublicKeyPEM(ctx context.Context, identity string) (string, error) {
	kp, err := s.Lookup(ctx, identity)
	if err != nil {
		return "", err
	}
	return cryptox.EncodePublicKeyPEM(kp.Public())
}

// load reads and parses a stored key. Absence is reported as
// common.ErrorNotFound, everything else as *KeyLoadError.
func (s *KeyStore) load(ctx context.Context, id, name string) (*models.KeyPair, error) {
	data, err := s.repo.Get(ctx, name)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		s.log.Error(ctx, "key read failed", "identity", id, "error", err)
		return nil, &KeyLoadError{Identity: id, Err: err}
	}
	defer common.WipeByteArray(data)

	priv, err := cryptox.DecodePrivateKeyPEM(data)
	if err != nil {
		s.log.Error(ctx, "stored key is corrupt", "identity", id, "name", name, "error", err)
		return nil, &KeyLoadError{Identity: id, Err: err}
	}
	return &models.KeyPair{Identity: id, Private: priv}, nil
}

func (s *KeyStore) create(ctx context.Context, id, name string) (*models.KeyPair, error) {
	priv, err := s.generate()
	if err != nil {
		return nil, &KeyCreationError{Identity: id, Err: fmt.Errorf("generate: %w", err)}
	}

	data, err := cryptox.EncodePrivateKeyPEM(priv)
	if err != nil {
		return nil, &KeyCreationError{Identity: id, Err: err}
	}
	defer common.WipeByteArray(data)

	created, err := s.repo.CreateIfAbsent(ctx, name, data)
	if err != nil {
		s.log.Error(ctx, "key write failed", "identity", id, "error", err)
		return nil, &KeyCreationError{Identity: id, Err: err}
	}

	if !created {
		// Another process stored a key first; theirs is authoritative.
		s.log.Info(ctx, "lost key creation race, loading stored key", "identity", id)
		kp, err := s.load(ctx, id, name)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, &KeyLoadError{Identity: id, Err: errors.New("key vanished after conflicting create")}
		}
		return kp, err
	}

	s.observer.KeyCreated()
	s.log.Info(ctx, "key created", "identity", id, "name", name)
	return &models.KeyPair{Identity: id, Private: priv}, nil
}

func (s *KeyStore) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &identityLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

func (s *KeyStore) cached(id string) *models.KeyPair {
	if !s.cacheEnabled {
		return nil
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache[id]
}

func (s *KeyStore) store(kp *models.KeyPair) {
	if !s.cacheEnabled {
		return
	}
	s.cacheMu.Lock()
	s.cache[kp.Identity] = kp
	s.cacheMu.Unlock()
}
