package s3

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/phrazzld/synth-api/internal/domain"
)

// Location identifies one object.
type Location struct {
	Bucket string
	Key    string
}

// String renders l as an s3:// reference.
func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// ParseLocation accepts s3://bucket/key, path-style
// https://s3.<region>.amazonaws.com/bucket/key and virtual-hosted
// https://bucket.s3.<region>.amazonaws.com/key forms. Query strings are ignored.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return Location{}, fmt.Errorf("%w: cannot parse %q", domain.ErrInvalidLocation, raw)
	}

	path := strings.TrimPrefix(u.Path, "/")

	var loc Location
	switch {
	case u.Scheme == "s3":
		loc = Location{Bucket: u.Host, Key: path}
	case u.Scheme == "http" || u.Scheme == "https":
		if bucket, ok := virtualHostBucket(u.Hostname()); ok {
			loc = Location{Bucket: bucket, Key: path}
			break
		}
		bucket, key, _ := strings.Cut(path, "/")
		loc = Location{Bucket: bucket, Key: key}
	default:
		return Location{}, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidLocation, u.Scheme)
	}

	if loc.Bucket == "" || loc.Key == "" {
		return Location{}, fmt.Errorf("%w: missing bucket or key in %q", domain.ErrInvalidLocation, raw)
	}

	return loc, nil
}

func virtualHostBucket(host string) (string, bool) {
	for _, marker := range []string{".s3.", ".s3-"} {
		if i := strings.Index(host, marker); i > 0 {
			return host[:i], true
		}
	}
	return "", false
}
