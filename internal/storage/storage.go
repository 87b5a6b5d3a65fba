// Package storage publishes generated artifacts and serves them back by
// URL. Cloud Storage backs production; the local publisher keeps offline
// runs self-contained.
package storage

import "context"

// Publisher uploads an artifact under a category prefix and returns its
// public URL.
type Publisher interface {
	Upload(ctx context.Context, data []byte, name, category string) (string, error)
}
