// Package server initializes and runs the MailProof server: it opens the key
// backend, wires the keystore, verification and send services, and serves
// them over HTTP and gRPC until a termination signal arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/mailproof/internal/logging"
	"github.com/dmitrijs2005/mailproof/internal/server/config"
	"github.com/dmitrijs2005/mailproof/internal/server/httpapi"
	"github.com/dmitrijs2005/mailproof/internal/server/keystore"
	"github.com/dmitrijs2005/mailproof/internal/server/mailer"
	"github.com/dmitrijs2005/mailproof/internal/server/metrics"
	"github.com/dmitrijs2005/mailproof/internal/server/proof"
	"github.com/dmitrijs2005/mailproof/internal/server/ratelimit"
	"github.com/dmitrijs2005/mailproof/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mailproof/internal/server/services"
	"github.com/dmitrijs2005/mailproof/internal/server/verification"

	gs "github.com/dmitrijs2005/mailproof/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	backend  *repomanager.Backend
	keys     *keystore.KeyStore
	verifier *verification.Service
	sender   *services.SendService
	metrics  *metrics.Metrics
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.New(os.Stdout, c.Env))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	backend, err := repomanager.Open(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("key backend init error: %w", err)
	}

	m := metrics.New()

	ks := keystore.New(backend.Keys,
		keystore.WithCache(c.CacheKeys),
		keystore.WithObserver(m),
		keystore.WithLogger(logger),
	)

	vs := verification.NewService(ks, logger)
	vs.SetObserver(m)

	transport := mailer.NewTransport(c.Env, c.SMTPHost, c.SMTPPort, logger)
	ss := services.NewSendService(ks, proof.NewBuilder(), transport, c, logger)
	ss.SetObserver(m)

	return &App{
		config:   c,
		logger:   logger,
		backend:  backend,
		keys:     ks,
		verifier: vs,
		sender:   ss,
		metrics:  m,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) httpServer() *httpapi.HTTPServer {
	limiter := ratelimit.New(app.config.RateLimitRPS, app.config.RateLimitBurst, 0)
	return httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, app.verifier, app.keys, app.sender, app.config.SecretKey,
		httpapi.WithMetrics(app.metrics.Handler()),
		httpapi.WithRateLimit(limiter),
	)
}

func (app *App) grpcServer() *gs.GRPCServer {
	return gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.verifier, app.keys, app.sender, app.config.SecretKey)
}

type runner interface {
	Run(ctx context.Context) error
}

func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, name string, r runner) {
	if err := r.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the key backend.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env, "backend", app.backend.Name)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "http", app.httpServer())
	}()
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "grpc", app.grpcServer())
	}()

	wg.Wait()

	if err := app.backend.Close(); err != nil {
		app.logger.Error(ctx, "closing key backend", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
