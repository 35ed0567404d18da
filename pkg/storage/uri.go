package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// S3URI represents a parsed S3 URI
type S3URI struct {
	Bucket string
	Prefix string
}

// ParseS3URI parses an S3 URI like s3://bucket/path/to/object
func ParseS3URI(uri string) (*S3URI, error) {
	if !IsS3URI(uri) {
		return nil, fmt.Errorf("invalid S3 URI: %s (must start with s3://)", uri)
	}

	path := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("invalid S3 URI: %s (missing bucket name)", uri)
	}

	parsed := &S3URI{Bucket: parts[0]}
	if len(parts) == 2 {
		parsed.Prefix = parts[1]
	}
	return parsed, nil
}

// IsS3URI checks if a path is an S3 URI
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// Split separates a file location into the directory a Storage should be
// rooted at and the file name relative to it.
func Split(location string) (base, name string) {
	if IsS3URI(location) {
		trimmed := strings.TrimSuffix(location, "/")
		i := strings.LastIndex(trimmed, "/")
		if i < len("s3://") {
			return trimmed, ""
		}
		return trimmed[:i], trimmed[i+1:]
	}
	return filepath.Dir(location), filepath.Base(location)
}

// Join appends a relative name to a base location
func Join(base, name string) string {
	if IsS3URI(base) {
		return strings.TrimSuffix(base, "/") + "/" + name
	}
	return filepath.Join(base, name)
}
