package storage

import (
	"context"
	"io"
)

// Storage holds accepted image uploads under server-generated names.
// Names are unique per request, so Save never overwrites an existing
// object.
type Storage interface {
	Save(ctx context.Context, name string, contentType string, content io.Reader) error
	Delete(ctx context.Context, name string) error
}
