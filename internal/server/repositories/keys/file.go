package keys

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/filex"
)

const keyFileMode = 0o600

// FileRepository keeps one PEM file per identity in a directory.
type FileRepository struct {
	dir string
}

// NewFileRepository creates dir if needed and returns a repository rooted there.
func NewFileRepository(dir string) (*FileRepository, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("key dir: %w", err)
	}
	return &FileRepository{dir: abs}, nil
}

// Dir returns the absolute key directory.
func (r *FileRepository) Dir() string {
	return r.dir
}

func (r *FileRepository) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: bad key name %q", common.ErrorValidation, name)
	}
	return filepath.Join(r.dir, name), nil
}

func (r *FileRepository) Get(_ context.Context, name string) ([]byte, error) {
	p, err := r.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("read key: %w", err)
	}
	return data, nil
}

func (r *FileRepository) Exists(_ context.Context, name string) (bool, error) {
	p, err := r.path(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat key: %w", err)
	}
}

func (r *FileRepository) CreateIfAbsent(_ context.Context, name string, data []byte) (bool, error) {
	p, err := r.path(name)
	if err != nil {
		return false, err
	}

	err = filex.WriteFileExclusive(p, data, keyFileMode)
	if errors.Is(err, filex.ErrExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("write key: %w", err)
	}
	return true, nil
}
