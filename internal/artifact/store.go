// Package artifact stores narrative text and images in named containers and
// hands back a stable URL for each stored object.
package artifact

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("artifact not found")

// Object is a stored artifact read back from a container.
type Object struct {
	Data        []byte
	ContentType string
}

// Store persists artifacts. Writing an existing key overwrites it.
type Store interface {
	Put(ctx context.Context, data []byte, contentType, container, key string) (string, error)
	Get(ctx context.Context, container, key string) (*Object, error)
}
