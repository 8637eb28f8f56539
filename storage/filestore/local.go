package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/candidature/core"
)

// localStore keeps files on the local disk under a root directory.
type localStore struct {
	root string
}

var _ core.FileStore = (*localStore)(nil)

func NewLocalStore(root string) (*localStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media root")
	}
	return &localStore{root: root}, nil
}

// path resolves name within the root; path traversal attempts are stripped.
func (store *localStore) path(name string) string {
	name = filepath.Clean("/" + strings.TrimPrefix(name, "/"))
	return filepath.Join(store.root, name)
}

func (store *localStore) Save(ctx context.Context, name string, content io.Reader) error {
	path := store.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating media directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, content); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}

func (store *localStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(store.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (store *localStore) Delete(ctx context.Context, name string) error {
	if err := os.Remove(store.path(name)); err != nil {
		if os.IsNotExist(err) {
			return core.ErrFileNotFound
		}
		return errors.Wrap(err, "deleting file")
	}
	return nil
}
