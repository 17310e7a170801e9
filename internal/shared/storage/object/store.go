package object

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned by Read when no object exists at the key.
	ErrNotFound = errors.New("object not found")
	// ErrAlreadyExists is returned by Write when the key is already taken.
	ErrAlreadyExists = errors.New("object already exists")
)

// Store persists blobs under caller-chosen keys. Keys are write-once.
type Store interface {
	Write(ctx context.Context, key string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// ReadAll reads a whole object into memory.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
