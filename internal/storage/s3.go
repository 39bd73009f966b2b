package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jordigilh/assetvalidator/internal/retry"
)

// S3FileProvider streams incoming files from S3 (or a MinIO/LocalStack-
// compatible endpoint) to a local temp file for GetFile, deleting it on
// cleanup, and streams StoreImage/StoreProductFile straight from disk
// back up to their respective buckets. Ported from
// original_source/providers.py's S3FileProvider. Every S3 round trip
// runs through a shared breaker and, for GetObject/PutObject themselves,
// retry.DefaultConfig's backoff — S3 hiccups (throttling, transient
// network errors) are exactly the class retry.IsRetryableError targets.
type S3FileProvider struct {
	client              *s3.Client
	incomingFilesBucket string
	publicFilesBucket   string
	productFilesBucket  string
	breaker             *retry.Breaker
}

// NewS3FileProvider wraps an already-configured *s3.Client (built by the
// caller via aws-sdk-go-v2's config.LoadDefaultConfig, pointed at a
// custom endpoint for MinIO/LocalStack when needed).
func NewS3FileProvider(client *s3.Client, incomingBucket, publicBucket, productBucket string) *S3FileProvider {
	return &S3FileProvider{
		client:              client,
		incomingFilesBucket: incomingBucket,
		publicFilesBucket:   publicBucket,
		productFilesBucket:  productBucket,
		breaker:             retry.NewBreaker("s3"),
	}
}

func (p *S3FileProvider) GetFile(ctx context.Context, id string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "assetvalidator-*"+filepath.Ext(id))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	err = p.breaker.Do(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
			out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: &p.incomingFilesBucket,
				Key:    &id,
			})
			if err != nil {
				return err
			}
			defer out.Body.Close()

			if _, err := tmp.Seek(0, io.SeekStart); err != nil {
				return err
			}
			if err := tmp.Truncate(0); err != nil {
				return err
			}
			_, err = io.Copy(tmp, out.Body)
			return err
		})
	})
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to fetch from S3: %w", err)
	}
	tmp.Close()

	cleanup := func() { os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, nil
}

func (p *S3FileProvider) StoreImage(ctx context.Context, sourcePath, destID string) error {
	return p.upload(ctx, sourcePath, p.publicFilesBucket, destID)
}

func (p *S3FileProvider) StoreProductFile(ctx context.Context, sourcePath, destID string) error {
	return p.upload(ctx, sourcePath, p.productFilesBucket, destID)
}

func (p *S3FileProvider) upload(ctx context.Context, sourcePath, bucket, destID string) error {
	err := p.breaker.Do(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
			f, err := os.Open(sourcePath)
			if err != nil {
				return err
			}
			defer f.Close()

			_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
				Bucket: &bucket,
				Key:    &destID,
				Body:   f,
			})
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}
