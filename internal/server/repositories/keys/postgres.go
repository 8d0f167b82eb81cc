package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/dbx"
	"github.com/dmitrijs2005/mailproof/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, name string) ([]byte, error) {
	query :=
		`SELECT name, private_key_pem, created_at FROM signing_keys
		 WHERE name = $1
		 `

	k := models.StoredKey{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&k.Name, &k.PEM, &k.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return k.PEM, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, name string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM signing_keys WHERE name = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, name string, data []byte) (bool, error) {
	query :=
		`INSERT INTO signing_keys (name, private_key_pem)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, name, data)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n == 1, nil
}
