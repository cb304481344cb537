package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/platform/logger"
)

// BlobStore deletes synthesized objects.
type BlobStore struct {
	api    s3iface.S3API
	logger *slog.Logger
}

// NewBlobStore creates a BlobStore over api.
func NewBlobStore(api s3iface.S3API, logger *slog.Logger) *BlobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{
		api:    api,
		logger: logger.With("component", "s3_blob_store"),
	}
}

// Delete removes the object at location.
// Returns domain.ErrBlobNotFound if S3 reports the object or bucket missing.
func (b *BlobStore) Delete(ctx context.Context, location string) error {
	loc, err := ParseLocation(location)
	if err != nil {
		return err
	}

	_, err = b.api.DeleteObjectWithContext(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", domain.ErrBlobNotFound, loc)
		}
		logger.FromContextOrDefault(ctx, b.logger).Error("failed to delete object",
			"error", err,
			"bucket", loc.Bucket,
			"key", loc.Key)
		return fmt.Errorf("delete %s: %w", loc, err)
	}

	logger.FromContextOrDefault(ctx, b.logger).Debug("object deleted",
		"bucket", loc.Bucket,
		"key", loc.Key)
	return nil
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case awss3.ErrCodeNoSuchKey, awss3.ErrCodeNoSuchBucket, "NotFound":
		return true
	default:
		return false
	}
}
