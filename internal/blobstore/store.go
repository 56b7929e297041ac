// Package blobstore provides durable key/blob storage for serialized ticker
// indexes. The remote copy is the source of truth on a cold cache.
package blobstore

import "context"

// Store is the remote object store contract.
type Store interface {
	// Put writes a blob under the given key, overwriting any existing value.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads the blob stored under key. Returns an error wrapping
	// fault.ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
}
