package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// ImageRepositoryGCS uploads catalog images to a Cloud Storage bucket.
//
// The bucket is expected to grant allUsers object read, so the returned
// URL is directly usable by browsers.
type ImageRepositoryGCS struct {
	Client *storage.Client
	Bucket string
	// Optional: if empty, uses https://storage.googleapis.com
	PublicBaseURL string
}

func NewImageRepositoryGCS(client *storage.Client, bucket string) *ImageRepositoryGCS {
	return &ImageRepositoryGCS{
		Client:        client,
		Bucket:        strings.TrimSpace(bucket),
		PublicBaseURL: "https://storage.googleapis.com",
	}
}

// Upload writes data to objectPath and returns its public URL.
func (r *ImageRepositoryGCS) Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	if r == nil || r.Client == nil {
		return "", ErrUnavailable
	}
	if r.Bucket == "" {
		return "", errors.New("image bucket is empty")
	}
	obj := strings.Trim(strings.TrimSpace(objectPath), "/")
	if obj == "" {
		return "", errors.New("image object path is empty")
	}

	w := r.Client.Bucket(r.Bucket).Object(obj).NewWriter(ctx)
	if ct := strings.TrimSpace(contentType); ct != "" {
		w.ContentType = ct
	}
	w.ChunkSize = 0
	w.Metadata = map[string]string{
		"uploadedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write %s: %w", obj, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", obj, err)
	}

	return PublicObjectURL(r.PublicBaseURL, r.Bucket, obj), nil
}

// PublicObjectURL joins base, bucket and object path, escaping each path segment.
func PublicObjectURL(base, bucket, objectPath string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	segs := strings.Split(strings.Trim(objectPath, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/" + url.PathEscape(bucket) + "/" + strings.Join(segs, "/")
}
