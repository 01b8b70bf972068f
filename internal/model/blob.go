package model

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by BlobRepository.Load when nothing has been saved yet
var ErrBlobNotFound = errors.New("blob not found")

// BlobRepository stores a single opaque document, replaced wholesale on every save
type BlobRepository interface {
	// Load returns the last saved document, or ErrBlobNotFound
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the document
	Save(ctx context.Context, data []byte) error

	// Name identifies the document for logging, such as a path or bucket key
	Name() string
}
