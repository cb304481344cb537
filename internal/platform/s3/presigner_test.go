package s3

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3(t *testing.T) *awss3.S3 {
	t.Helper()

	sess, err := session.NewSession(aws.NewConfig().
		WithRegion("us-east-1").
		WithS3ForcePathStyle(true).
		WithCredentials(credentials.NewStaticCredentials("AKIDEXAMPLE", "secret", "")))
	require.NoError(t, err)

	return awss3.New(sess)
}

func TestPresignerIssue(t *testing.T) {
	p := NewPresigner(newTestS3(t), nil)

	signed, err := p.Issue(context.Background(),
		"https://s3.us-east-1.amazonaws.com/synth-output/audio/T1.mp3", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "/synth-output/audio/T1.mp3", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignerIssueInvalidLocation(t *testing.T) {
	p := NewPresigner(newTestS3(t), nil)

	_, err := p.Issue(context.Background(), "s3://bucket-only", time.Minute)
	assert.ErrorIs(t, err, domain.ErrInvalidLocation)
}

func TestPresignerLocateRoundTrip(t *testing.T) {
	p := NewPresigner(newTestS3(t), nil)

	signed, err := p.Issue(context.Background(), "s3://synth-output/audio/T1.mp3", time.Hour)
	require.NoError(t, err)

	location, err := p.Locate(signed)
	require.NoError(t, err)
	assert.NotContains(t, location, "?")

	loc, err := ParseLocation(location)
	require.NoError(t, err)
	assert.Equal(t, Location{Bucket: "synth-output", Key: "audio/T1.mp3"}, loc)
}

func TestPresignerLocateInvalid(t *testing.T) {
	p := NewPresigner(newTestS3(t), nil)

	_, err := p.Locate("::::")
	assert.ErrorIs(t, err, domain.ErrInvalidLocation)
}
