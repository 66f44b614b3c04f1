// Package storage writes evidence files to Cloudinary, S3-compatible buckets
// or local disk behind a single interface.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Object is a stored file. Key is what Delete needs later.
type Object struct {
	Key string
	URL string
}

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

type Options struct {
	Driver string

	LocalDir       string
	LocalPublicURL string

	CloudName string
	APIKey    string
	APISecret string
	Folder    string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// Open returns the Store selected by opts.Driver.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case "", "local":
		return NewLocal(opts.LocalDir, opts.LocalPublicURL)
	case "cloudinary":
		return NewCloudinary(opts.CloudName, opts.APIKey, opts.APISecret, opts.Folder)
	case "s3":
		return NewS3(opts.S3Endpoint, opts.S3Region, opts.S3Bucket, opts.S3AccessKey, opts.S3SecretKey, opts.S3PublicURL)
	}
	return nil, fmt.Errorf("storage: unknown driver %q", opts.Driver)
}
