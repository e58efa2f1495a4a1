package storage

import (
	"context"
	"io"
)

// Object describes a stored object.
type Object struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	ETag     string `json:"etag,omitempty"`
}

// ObjectStore is the bucket the finalized results are archived to.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader) (*Object, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
