// Package archive stores uploaded statements and their extraction results in
// Google Cloud Storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

// Store is an interface over the archive so handlers and workers can be
// tested with a mock.
type Store interface {
	// PutStatement uploads the raw statement PDF and returns its gs:// URI.
	PutStatement(ctx context.Context, statementID string, pdf []byte) (string, error)

	// PutResult uploads the merged extraction result as JSON next to the
	// statement and returns its gs:// URI.
	PutResult(ctx context.Context, statementID string, result *extract.Result) (string, error)

	// Fetch downloads the object behind a gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// GCSStore implements Store against a single bucket. It assumes Application
// Default Credentials are configured.
type GCSStore struct {
	client *storage.Client
	bucket string
}

var _ Store = (*GCSStore)(nil)

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive.NewGCSStore: create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) PutStatement(ctx context.Context, statementID string, pdf []byte) (string, error) {
	object := path.Join("statements", statementID+".pdf")
	if err := s.put(ctx, object, "application/pdf", bytes.NewReader(pdf)); err != nil {
		return "", fmt.Errorf("archive.PutStatement: %w", err)
	}
	return s.uri(object), nil
}

func (s *GCSStore) PutResult(ctx context.Context, statementID string, result *extract.Result) (string, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("archive.PutResult: marshal result: %w", err)
	}
	object := path.Join("results", statementID+".json")
	if err := s.put(ctx, object, "application/json", bytes.NewReader(payload)); err != nil {
		return "", fmt.Errorf("archive.PutResult: %w", err)
	}
	return s.uri(object), nil
}

func (s *GCSStore) put(ctx context.Context, object, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

func (s *GCSStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("archive.Fetch: %w", err)
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive.Fetch: open %s: %w", uri, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("archive.Fetch: read %s: %w", uri, err)
	}
	return data, nil
}

func (s *GCSStore) uri(object string) string {
	return "gs://" + s.bucket + "/" + object
}

// ParseURI splits a gs://bucket/path/to/object URI into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
