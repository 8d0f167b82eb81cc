// Package repomanager wires key repositories to their storage: it runs the
// goose migrations of the SQL dialects and opens the backend named in the
// server configuration.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailproof/internal/dbx"
	"github.com/dmitrijs2005/mailproof/internal/server/migrations"
	"github.com/dmitrijs2005/mailproof/internal/server/repositories/keys"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Keys returns a keys.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Keys(db dbx.DBTX) keys.Repository {
	return keys.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, migrations.PostgresDir); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
