package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/dbx"
)

// SQLiteRepository stores keys in a local SQLite database file. It suits a
// single host that wants one file instead of a directory of PEM files.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT private_key_pem FROM signing_keys WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key[%s]: %w", name, err)
	}
	return data, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM signing_keys WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check key[%s]: %w", name, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) CreateIfAbsent(ctx context.Context, name string, data []byte) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO signing_keys (name, private_key_pem) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, data)
	if err != nil {
		return false, fmt.Errorf("failed to create key[%s]: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create key[%s]: %w", name, err)
	}
	return n == 1, nil
}
