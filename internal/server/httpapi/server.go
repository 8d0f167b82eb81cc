// Package httpapi exposes verification, public key retrieval, proof issuing
// and sending over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/logging"
	"github.com/dmitrijs2005/mailproof/internal/server/ratelimit"
	"github.com/dmitrijs2005/mailproof/internal/server/services"
	"github.com/dmitrijs2005/mailproof/internal/server/verification"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

const shutdownTimeout = 10 * time.Second

// Verifier evaluates signatures. It never fails; see verification.Result.
type Verifier interface {
	VerifyByIdentity(ctx context.Context, identity, message, hexSignature string) verification.Result
	VerifyByPublicKey(ctx context.Context, encodedKey, encoding, message, hexSignature string) verification.Result
}

// KeyLookup returns a stored public key without creating one.
type KeyLookup interface {
	PublicKeyPEM(ctx context.Context, identity string) (string, error)
}

// Sender signs outgoing mail and issues proofs.
type Sender interface {
	Send(ctx context.Context, req services.SendRequest) (*services.SendResult, error)
	IssueProof(ctx context.Context, identity, annotation string) (*services.IssuedProof, error)
}

type HTTPServer struct {
	address   string
	logger    logging.Logger
	verifier  Verifier
	keys      KeyLookup
	sender    Sender
	metrics   http.Handler
	limiter   *ratelimit.Limiter
	jwtSecret []byte
}

// Option configures optional parts of the server.
type Option func(*HTTPServer)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *HTTPServer) { s.metrics = h }
}

// WithRateLimit installs a per-client limiter; nil disables limiting.
func WithRateLimit(l *ratelimit.Limiter) Option {
	return func(s *HTTPServer) { s.limiter = l }
}

func NewHTTPServer(a string, l logging.Logger, v Verifier, k KeyLookup, snd Sender, secretKey string, opts ...Option) *HTTPServer {
	s := &HTTPServer{
		address:   a,
		logger:    l.With("module", "http_server"),
		verifier:  v,
		keys:      k,
		sender:    snd,
		jwtSecret: []byte(secretKey),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Verification and key lookup are callable from any browser origin.
	c := publicCORS()
	public := func(method, path string, h http.HandlerFunc) {
		mux.Handle(method+" "+path, c.Handler(h))
		mux.Handle("OPTIONS "+path, c.Handler(http.HandlerFunc(noContent)))
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	public(http.MethodPost, "/verify", s.handleVerify)
	public(http.MethodPost, "/verify/key", s.handleVerifyKey)
	public(http.MethodGet, "/key", s.handleKey)
	mux.HandleFunc("POST /send", s.requireToken(s.handleSend))
	mux.HandleFunc("POST /proof", s.requireToken(s.handleProof))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return s.logRequests(s.rateLimit(limitBody(mux)))
}

func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
