package blobstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound reports that no object exists at the requested key.
var ErrNotFound = errors.New("object not found")

// Driver is the byte-storage abstraction consumed by the blob service.
// Object keys are opaque posix-style paths owned by the caller.
type Driver interface {
	// Kind matches the models.StorageKind recorded on blobs at write time.
	Kind() string
	Put(ctx context.Context, objectKey string, body io.Reader, contentType string) error
	Get(ctx context.Context, objectKey string) (io.ReadCloser, error)
	// Delete removes an object. Deleting a missing object is success.
	Delete(ctx context.Context, objectKey string) error
}

// SignedURL is a time-boxed backend-native direct-access link.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// URLSigner is the optional capability of drivers that can mint direct
// download links without proxying bytes. Callers probe for it with a type
// assertion on the Driver.
type URLSigner interface {
	SignGetURL(ctx context.Context, objectKey string, ttl time.Duration) (SignedURL, error)
}
