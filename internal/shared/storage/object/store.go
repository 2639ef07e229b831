package object

import (
	"context"
	"errors"
	"io"
)

// ErrObjectExists is returned by Put when Upsert is false and the key is taken.
var ErrObjectExists = errors.New("object already exists")

// ErrInvalidKey is returned for keys that escape the store namespace.
var ErrInvalidKey = errors.New("invalid storage key")

// PutOptions controls how an object is written.
type PutOptions struct {
	ContentType  string
	CacheControl string
	Upsert       bool
}

// ObjectStore defines the contract for saving and retrieving binary objects.
// Keys are caller-chosen, deterministic paths.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	PublicURL(key string) string
}
