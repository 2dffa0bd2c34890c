package ports

import "context"

// StoredResponse contains the response data to replay for a reused key.
type StoredResponse struct {
	StatusCode int
	Body       []byte
	OrderID    string
	// Fingerprint identifies the request that produced the response, so a key
	// reused for a different basket can be told apart from a retry.
	Fingerprint string
}

// IdempotencyStore ensures create operations can be retried safely.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	// Save keeps the first response stored for a key and ignores later ones.
	Save(ctx context.Context, key string, response StoredResponse) error
}
