package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/mailproof/internal/filex"
	"github.com/dmitrijs2005/mailproof/internal/logging"
	"github.com/dmitrijs2005/mailproof/internal/server/config"
	"github.com/dmitrijs2005/mailproof/internal/server/repositories/keys"
)

var (
	sqlOpen = sql.Open

	newS3API = func(ctx context.Context, c keys.S3Config) (keys.S3API, error) {
		return keys.NewS3Client(ctx, c)
	}
)

// Backend is an opened key repository together with whatever it holds open.
type Backend struct {
	Name  string
	Keys  keys.Repository
	close func() error
}

// Close releases the backend's resources.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open builds the key repository selected by cfg.KeyBackend. SQL backends
// are migrated before use.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Backend, error) {
	log = log.With("module", "repomanager", "backend", cfg.KeyBackend)

	switch cfg.KeyBackend {
	case config.BackendFile:
		repo, err := keys.NewFileRepository(cfg.KeyDir)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "key store ready", "dir", repo.Dir())
		return &Backend{Name: cfg.KeyBackend, Keys: repo}, nil

	case config.BackendPostgres:
		return openSQL(ctx, cfg.KeyBackend, "pgx", cfg.DatabaseDSN, NewPostgresRepositoryManager(), log)

	case config.BackendSQLite:
		if _, err := filex.EnsureDir(filepath.Dir(cfg.SQLitePath)); err != nil {
			return nil, err
		}
		return openSQL(ctx, cfg.KeyBackend, "sqlite", cfg.SQLitePath, NewSQLiteRepositoryManager(), log)

	case config.BackendS3:
		api, err := newS3API(ctx, keys.S3Config{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3RootUser,
			SecretKey:    cfg.S3RootPassword,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
		})
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "key store ready", "bucket", cfg.S3Bucket)
		return &Backend{Name: cfg.KeyBackend, Keys: keys.NewS3Repository(api, cfg.S3Bucket)}, nil

	default:
		return nil, fmt.Errorf("unknown key backend %q", cfg.KeyBackend)
	}
}

func openSQL(ctx context.Context, name, driver, dsn string, m RepositoryManager, log logging.Logger) (*Backend, error) {
	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", name, err)
	}

	log.Info(ctx, "key store ready")
	return &Backend{Name: name, Keys: m.Keys(db), close: db.Close}, nil
}
