package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by Bucket and Resolver.
type S3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config describes how to reach an S3-compatible endpoint.
type S3Config struct {
	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UsePathStyle    bool   `json:"use_path_style"`
}

// NewS3Client builds an S3 client. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// Bucket is a root over one "directory" level of an S3 bucket.
type Bucket struct {
	client S3API
	bucket string
	prefix string // empty or ends with "/"
}

// NewBucket returns a root listing keys directly under prefix.
func NewBucket(client S3API, bucket, prefix string) *Bucket {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Bucket{client: client, bucket: bucket, prefix: prefix}
}

func (b *Bucket) Location() string { return s3Path(b.bucket, b.prefix) }

// List pages through the keys under the prefix. The "/" delimiter keeps
// the listing to one level; nested prefixes come back as Dir objects.
func (b *Bucket) List(ctx context.Context) ([]Object, error) {
	var objs []Object
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(b.prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", b.Location(), err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, b.prefix)
			if name == "" {
				continue // folder placeholder
			}
			objs = append(objs, Object{
				Name: name,
				Path: s3Path(b.bucket, key),
				Size: aws.ToInt64(obj.Size),
			})
		}
		for _, cp := range page.CommonPrefixes {
			key := aws.ToString(cp.Prefix)
			objs = append(objs, Object{
				Name: path.Base(key),
				Path: s3Path(b.bucket, key),
				Dir:  true,
			})
		}
	}
	return objs, nil
}

// Stat looks up one key under the prefix.
func (b *Bucket) Stat(ctx context.Context, name string) (Object, error) {
	key := b.prefix + name
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Object{}, fmt.Errorf("storage: stat %s: %w", s3Path(b.bucket, key), err)
	}
	return Object{
		Name: name,
		Path: s3Path(b.bucket, key),
		Size: aws.ToInt64(out.ContentLength),
	}, nil
}

// openObject buffers an object in memory so the decoder can seek in it.
func openObject(ctx context.Context, client S3API, bucket, key string, limit int64) (io.ReadSeekCloser, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", s3Path(bucket, key), err)
	}
	defer out.Body.Close()

	var body io.Reader = out.Body
	if limit > 0 {
		body = io.LimitReader(out.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", s3Path(bucket, key), err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s larger than %d bytes", ErrTooLarge, s3Path(bucket, key), limit)
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
