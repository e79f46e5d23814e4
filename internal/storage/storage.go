// Package storage abstracts the places STL files are discovered and read
// from: local directories and S3 prefixes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Object is one non-recursive listing result.
type Object struct {
	Name string // base name shown to the user
	Path string // resolved path; identity of the object
	Size int64
	Dir  bool
}

// Root is a storage location that can be listed one level deep.
type Root interface {
	Location() string
	List(ctx context.Context) ([]Object, error)
	Stat(ctx context.Context, name string) (Object, error)
}

var (
	ErrNoS3Client = errors.New("storage: s3 location requires an s3 client")
	ErrTooLarge   = errors.New("storage: object exceeds size limit")
)

const s3Scheme = "s3://"

// Resolver turns location strings into roots and opens resolved paths.
type Resolver struct {
	S3 S3API // optional; s3:// locations fail without it

	// MaxObjectSize caps how much of a remote object is buffered by Open.
	// Zero means no cap.
	MaxObjectSize int64
}

// Root returns the Root for location. "s3://bucket/prefix" selects a
// Bucket; anything else is a local directory.
func (r *Resolver) Root(location string) (Root, error) {
	if strings.HasPrefix(location, s3Scheme) {
		if r == nil || r.S3 == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoS3Client, location)
		}
		bucket, prefix, err := ParseS3Location(location)
		if err != nil {
			return nil, err
		}
		return NewBucket(r.S3, bucket, prefix), nil
	}
	return NewDir(location), nil
}

// Open returns a seekable stream for a path produced by a Root.
func (r *Resolver) Open(ctx context.Context, path string) (io.ReadSeekCloser, error) {
	if strings.HasPrefix(path, s3Scheme) {
		if r == nil || r.S3 == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoS3Client, path)
		}
		bucket, key, err := ParseS3Location(path)
		if err != nil {
			return nil, err
		}
		return openObject(ctx, r.S3, bucket, key, r.MaxObjectSize)
	}
	return openFile(path)
}

// ParseS3Location splits "s3://bucket/key/prefix" into bucket and key.
func ParseS3Location(location string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(location, s3Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("storage: missing bucket in %q", location)
	}
	return bucket, key, nil
}

func s3Path(bucket, key string) string {
	return s3Scheme + bucket + "/" + key
}
