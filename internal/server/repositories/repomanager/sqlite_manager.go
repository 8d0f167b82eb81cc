package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mailproof/internal/dbx"
	"github.com/dmitrijs2005/mailproof/internal/server/migrations"
	"github.com/dmitrijs2005/mailproof/internal/server/repositories/keys"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager is the single-file counterpart of
// PostgresRepositoryManager.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Keys(db dbx.DBTX) keys.Repository {
	return keys.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, migrations.SQLiteDir)
}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}
