package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailproof/internal/dbx"
	"github.com/dmitrijs2005/mailproof/internal/server/repositories/keys"
)

// RepositoryManager vends SQL-backed repositories for one dialect and owns
// that dialect's schema migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Keys(db dbx.DBTX) keys.Repository
}
