package storage

import (
	"context"
	"time"
)

// SignedURLProvider signs read access to one object for a limited time.
type SignedURLProvider interface {
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Checker is implemented by backends that can probe their bucket.
type Checker interface {
	Check(ctx context.Context) error
}
