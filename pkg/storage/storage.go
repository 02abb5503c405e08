// Package storage talks to the object store that holds uploaded files.
package storage

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoredObject is what the store hands back after a write.
type StoredObject struct {
	// Key is the opaque reference used for later deletes.
	Key string
	// URL is the public location of the object.
	URL string
}

// ObjectInfo describes one stored object in a listing.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

// ObjectStore is the upload/delete contract the services depend on.
type ObjectStore interface {
	Put(ctx context.Context, folder, fileName string, r io.Reader, size int64, contentType string) (*StoredObject, error)
	Remove(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// ListObjects returns every object under prefix.
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds a collision-free key for fileName inside folder.
func ObjectKey(folder, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "_")
	if base == "" || base == "." {
		base = "file"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return path.Join(folder, uuid.NewString()+"-"+base)
}
