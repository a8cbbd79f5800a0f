// Package storage uploads gallery and catalog images to object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Object identifies a stored file: Path is the bucket key needed for
// deletion, URL is what clients load.
type Object struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

type Client interface {
	Upload(ctx context.Context, folder string, r io.Reader, filename, contentType string) (Object, error)
	Delete(ctx context.Context, path string) error
}

type Config struct {
	Provider          string // firebase or s3
	FirebaseBucket    string
	GoogleCredentials string
	AWSRegion         string
	AWSS3Bucket       string
	AWSAccessKeyID    string
	AWSSecretKey      string
}

func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "s3":
		c, err := NewS3Client(ctx, cfg.AWSRegion, cfg.AWSS3Bucket, cfg.AWSAccessKeyID, cfg.AWSSecretKey)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "firebase", "":
		c, err := NewFirebaseClient(ctx, cfg.FirebaseBucket, cfg.GoogleCredentials)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename removes special characters from filenames and limits length.
func sanitizeFilename(filename string) string {
	sanitized := unsafeFilename.ReplaceAllString(filename, "_")
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = "file"
	}
	return sanitized
}

// objectPath builds folder/<unix>_<short uuid>_<name>. The uuid fragment keeps
// concurrent uploads of the same filename from overwriting each other.
func objectPath(folder, filename string) string {
	if folder == "" {
		folder = "uploads"
	}
	return fmt.Sprintf("%s/%d_%s_%s",
		sanitizeFilename(folder),
		time.Now().Unix(),
		uuid.New().String()[:8],
		sanitizeFilename(filename),
	)
}
