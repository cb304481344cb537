package s3

import (
	"testing"

	"github.com/phrazzld/synth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want Location
	}{
		{"s3 reference", "s3://synth-output/audio/T1.mp3", Location{"synth-output", "audio/T1.mp3"}},
		{"path style", "https://s3.us-east-1.amazonaws.com/synth-output/audio/T1.mp3", Location{"synth-output", "audio/T1.mp3"}},
		{"global endpoint", "https://s3.amazonaws.com/synth-output/T1.mp3", Location{"synth-output", "T1.mp3"}},
		{"virtual hosted", "https://synth-output.s3.eu-west-1.amazonaws.com/T1.mp3", Location{"synth-output", "T1.mp3"}},
		{"query ignored", "https://s3.us-east-1.amazonaws.com/synth-output/T1.mp3?X-Amz-Expires=3600", Location{"synth-output", "T1.mp3"}},
		{"local endpoint", "http://localhost:4566/synth-output/T1.mp3", Location{"synth-output", "T1.mp3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocationInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		"",
		"not a url",
		"ftp://host/bucket/key",
		"s3://bucket-only",
		"https://s3.us-east-1.amazonaws.com/bucket-only",
	} {
		_, err := ParseLocation(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidLocation, raw)
	}
}

func TestLocationString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "s3://synth-output/audio/T1.mp3", Location{"synth-output", "audio/T1.mp3"}.String())
}
