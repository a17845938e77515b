package storage

import (
	"context"
)

// ArchiveStore is where finished sessions end up. A session document is
// archived as JSON on completion or abandonment; failures here are
// logged and never block or roll back the session transition.
type ArchiveStore interface {
	// PutArchive writes one archived document under the given key.
	PutArchive(ctx context.Context, objectKey string, body []byte) error

	// GetArchive reads an archived document back, for coach review of
	// past sessions.
	GetArchive(ctx context.Context, objectKey string) ([]byte, error)

	// DeleteArchive removes an archived document.
	DeleteArchive(ctx context.Context, objectKey string) error
}
