package series

import "context"

// Fetcher retrieves the full record sequence published at a route.
type Fetcher interface {
	Fetch(ctx context.Context, route string) ([]Record, error)
}

// Cache is a durable local store holding one keyed collection per data type.
type Cache interface {
	// EnsureSchema idempotently creates a collection for every alias.
	EnsureSchema(ctx context.Context, aliases []string) error
	Count(ctx context.Context, dataType string) (int, error)
	// BulkInsert stores records; a key that already exists is overwritten.
	BulkInsert(ctx context.Context, dataType string, records []Record) error
	// Query returns the records whose key falls in kr, ordered by key.
	Query(ctx context.Context, dataType string, kr KeyRange) ([]Record, error)
}
