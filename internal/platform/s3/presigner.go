package s3

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/phrazzld/synth-api/internal/platform/logger"
)

// Presigner mints time-limited GET URLs for stored objects.
type Presigner struct {
	api    s3iface.S3API
	logger *slog.Logger
}

// NewPresigner creates a Presigner signing with api's credentials.
func NewPresigner(api s3iface.S3API, logger *slog.Logger) *Presigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presigner{
		api:    api,
		logger: logger.With("component", "s3_presigner"),
	}
}

// Issue returns a presigned GET URL for location valid for ttl.
func (p *Presigner) Issue(ctx context.Context, location string, ttl time.Duration) (string, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return "", err
	}

	req, _ := p.api.GetObjectRequest(&awss3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	req.SetContext(ctx)

	signed, err := req.Presign(ttl)
	if err != nil {
		logger.FromContextOrDefault(ctx, p.logger).Error("failed to presign object",
			"error", err,
			"bucket", loc.Bucket,
			"key", loc.Key)
		return "", fmt.Errorf("presign %s: %w", loc, err)
	}

	return signed, nil
}

// Locate recovers the object location from an access URL by dropping its
// signature query.
func (p *Presigner) Locate(accessURL string) (string, error) {
	u, err := url.Parse(accessURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: cannot parse access URL", domain.ErrInvalidLocation)
	}

	u.RawQuery = ""
	u.Fragment = ""
	location := u.String()

	if _, err := ParseLocation(location); err != nil {
		return "", err
	}

	return location, nil
}
