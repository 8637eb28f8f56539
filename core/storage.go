package core

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

var ErrFileNotFound = errors.New("file not found")

// FileStore is any service that can persist uploaded documents.
// Keys are opaque names generated by the caller.
type FileStore interface {
	Save(ctx context.Context, name string, content io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}
