package persistence

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/amirasaad/studentaid/pkg/ledger"
)

// FilePersister stores the document as <dir>/<key>.json. Saves write a
// temporary file and rename it over the old one so readers never observe a
// partial document.
type FilePersister struct {
	path string
}

// NewFilePersister creates dir if needed and returns a persister for key.
func NewFilePersister(dir, key string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FilePersister{path: filepath.Join(dir, key+".json")}, nil
}

// Path returns the location of the document.
func (p *FilePersister) Path() string { return p.path }

func (p *FilePersister) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ledger.ErrNoSnapshot
	}
	return data, err
}

func (p *FilePersister) Save(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p.path), filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p.path)
}

var _ ledger.Persister = (*FilePersister)(nil)
