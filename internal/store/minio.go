package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fleetsync-io/fleetsync/pkg/log"
	"github.com/fleetsync-io/fleetsync/pkg/options"
)

// S3Backend stores the dataset artifact as a single object in an S3-compatible
// bucket. PutObject replaces the object in one operation, which gives the same
// all-or-nothing property as the file backend's rename.
type S3Backend struct {
	client    *minio.Client
	bucket    string
	objectKey string
}

// NewS3Backend creates an S3/MinIO-backed artifact store and ensures the
// bucket exists.
func NewS3Backend(ctx context.Context, opts *options.S3Options, objectKey string) (*S3Backend, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	b := &S3Backend{
		client:    client,
		bucket:    opts.BucketName,
		objectKey: objectKey,
	}

	exists, err := client.BucketExists(ctx, b.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", b.bucket)
		if err := client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return b, nil
}

func (b *S3Backend) Load(ctx context.Context) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// minio reports a missing key on first read, not on GetObject.
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to read dataset object: %w", err)
	}
	return data, nil
}

func (b *S3Backend) Save(ctx context.Context, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.objectKey,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to put dataset object: %w", err)
	}
	return nil
}
