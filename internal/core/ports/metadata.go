package ports

import "context"

// MetadataFetcher retrieves raw metadata documents from remote hosts.
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}
