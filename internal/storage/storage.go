package storage

import "context"

// Mirror copies a saved asset to remote storage and returns its location.
type Mirror interface {
	Upload(ctx context.Context, localPath string) (string, error)
}
