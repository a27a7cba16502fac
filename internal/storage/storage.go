// Package storage holds raw file bytes and generated thumbnails. Blobs are
// addressed by the path returned from Put; derivatives are written next to
// the original with PutAt.
package storage

import "context"

// Blob is a byte store. Get returns common.ErrNotFound for absent paths.
type Blob interface {
	// Put stores data under a generated name and returns the path to
	// persist in the file record.
	Put(ctx context.Context, name string, data []byte) (string, error)
	// PutAt writes data at a path derived from one returned by Put.
	PutAt(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}
