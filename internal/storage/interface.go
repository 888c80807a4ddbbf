package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrInvalidKey = errors.New("invalid attachment key")
	ErrNotFound   = errors.New("attachment not found")
)

// AttachmentStore keeps client documents, rental contracts and expense
// receipts. Keys are relative slash-separated paths produced by NewKey.
type AttachmentStore interface {
	// Save writes the content of reader under key, replacing any previous file.
	Save(ctx context.Context, key string, reader io.Reader) error

	// Open returns the stored content. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether key is stored and its size.
	Exists(ctx context.Context, key string) (exists bool, size int64, err error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
