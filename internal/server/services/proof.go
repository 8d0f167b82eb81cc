// Package services contains server-side business logic. This file implements
// SendService, which signs outgoing mail with the sender's proof token and
// issues proofs for external template pipelines.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/cryptox"
	"github.com/dmitrijs2005/mailproof/internal/logging"
	"github.com/dmitrijs2005/mailproof/internal/server/config"
	"github.com/dmitrijs2005/mailproof/internal/server/mailer"
	"github.com/dmitrijs2005/mailproof/internal/server/models"
	"github.com/dmitrijs2005/mailproof/internal/server/proof"
	"github.com/dmitrijs2005/mailproof/internal/server/signing"
)

// KeyResolver returns an identity's keypair, creating it on first use.
type KeyResolver interface {
	Resolve(ctx context.Context, identity string) (*models.KeyPair, error)
}

// SignObserver is notified after every signing attempt.
type SignObserver interface {
	Signed(err error)
}

type nopSignObserver struct{}

func (nopSignObserver) Signed(error) {}

// SendRequest is one outgoing message from an authenticated sender.
type SendRequest struct {
	Identity string
	// Password authenticates Identity against the SMTP relay. It is used
	// once and never stored.
	Password string

	Name      string
	Role      string
	LatinName string
	LatinRole string
	Extra     map[string]string

	Subject string
	Body    string
	To      []string
	CC      []string
	BCC     []string
	ReplyTo string
}

// SendResult describes a delivered message.
type SendResult struct {
	ProofID   string
	Message   string
	Signature string
}

// IssuedProof is a signed token plus everything a recipient needs to check it.
type IssuedProof struct {
	ID              string
	IssuedAt        time.Time
	Identity        string
	Message         string
	Display         string
	Signature       string
	PublicKey       string
	PublicKeyBase64 string
}

// SendService composes, signs and delivers mail.
type SendService struct {
	keys      KeyResolver
	builder   *proof.Builder
	transport mailer.Transport
	observer  SignObserver
	log       logging.Logger

	quote        string
	selfURL      string
	templatePath string
}

// NewSendService constructs a SendService using server config.
func NewSendService(keys KeyResolver, builder *proof.Builder, transport mailer.Transport, cfg *config.Config, log logging.Logger) *SendService {
	return &SendService{
		keys:         keys,
		builder:      builder,
		transport:    transport,
		observer:     nopSignObserver{},
		log:          log.With("module", "send"),
		quote:        cfg.SignatureQuote,
		selfURL:      cfg.SelfURL,
		templatePath: cfg.SignatureTemplate,
	}
}

// SetObserver installs o; nil restores the no-op observer.
func (s *SendService) SetObserver(o SignObserver) {
	if o == nil {
		o = nopSignObserver{}
	}
	s.observer = o
}

// IssueProof resolves the identity's key, builds a fresh token with the given
// annotation and signs it.
func (s *SendService) IssueProof(ctx context.Context, identity, annotation string) (*IssuedProof, error) {
	kp, err := s.keys.Resolve(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve signing key: %w", err)
	}

	token, sig, err := s.sign(kp, annotation)
	if err != nil {
		return nil, err
	}

	pub, err := signing.NewEngine(kp).ExportPublicKey()
	if err != nil {
		return nil, fmt.Errorf("export public key: %w", err)
	}

	s.log.Info(ctx, "proof issued", "identity", kp.Identity, "proof_id", token.ID)

	return &IssuedProof{
		ID:              token.ID,
		IssuedAt:        token.IssuedAt,
		Identity:        kp.Identity,
		Message:         token.Message,
		Display:         token.Display(),
		Signature:       sig,
		PublicKey:       pub,
		PublicKeyBase64: cryptox.EncodePublicKeyBase64(pub),
	}, nil
}

// Send signs and delivers one message. Keystore failures abort the send
// before anything is rendered.
func (s *SendService) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	email, err := mailer.NewEmail(req.Subject, req.Body, req.To, req.CC, req.BCC, req.ReplyTo)
	if err != nil {
		return nil, err
	}
	if err := email.Validate(); err != nil {
		return nil, err
	}

	kp, err := s.keys.Resolve(ctx, req.Identity)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve signing key: %w", err)
	}

	token, sig, err := s.sign(kp, s.quote)
	if err != nil {
		return nil, err
	}

	html, err := mailer.Render(mailer.RenderInput{
		Profile: mailer.Profile{
			Name:      req.Name,
			Email:     kp.Identity,
			Role:      req.Role,
			LatinName: req.LatinName,
			LatinRole: req.LatinRole,
			Extra:     req.Extra,
		},
		Body:         email.Body,
		Message:      token.Message,
		Display:      token.Display(),
		Signature:    sig,
		ProofID:      token.ID,
		SelfURL:      s.selfURL,
		TemplatePath: s.templatePath,
	})
	if err != nil {
		return nil, err
	}

	msg := mailer.Compose(kp.Identity, email, html)
	if err := s.transport.Send(ctx, kp.Identity, req.Password, email.AllRecipients(), msg); err != nil {
		s.log.Error(ctx, "send failed", "identity", kp.Identity, "proof_id", token.ID, "error", err)
		return nil, fmt.Errorf("send mail: %w", err)
	}

	s.log.Info(ctx, "mail sent", "identity", kp.Identity, "proof_id", token.ID, "recipients", len(email.AllRecipients()))

	return &SendResult{ProofID: token.ID, Message: token.Message, Signature: sig}, nil
}

func (s *SendService) sign(kp *models.KeyPair, annotation string) (proof.Token, string, error) {
	token, err := s.builder.Build(kp.Identity, annotation)
	if err != nil {
		return proof.Token{}, "", err
	}

	sig, err := signing.NewEngine(kp).CreateProofSignature(token.Message)
	s.observer.Signed(err)
	if err != nil {
		return proof.Token{}, "", fmt.Errorf("sign proof: %w", err)
	}
	return token, sig, nil
}
