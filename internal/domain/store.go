package domain

import "context"

// SignalStore persists emitted signals and their eventual outcomes. The
// emission path calls it fire-and-forget; a store failure never blocks or
// fails an emission.
type SignalStore interface {
	Insert(ctx context.Context, sig Signal) error
	UpdateResult(ctx context.Context, id int64, result Result) error
	ListRecent(ctx context.Context, limit int) ([]Signal, error)
}

// BlobWriter uploads an object to cloud storage. Used by the signal
// archiver.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
