// Package blob abstracts the opaque store that holds evidence document
// content. The engine never reads document bytes back; it only needs Put for
// uploads and Delete as the compensating action when the evidence record
// insert fails after a successful write.
package blob

import (
	"context"
	"io"
)

// Store holds opaque evidence blobs keyed by string.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
