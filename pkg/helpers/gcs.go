package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a Cloud Storage client from a service account file,
// or from application default credentials when credsPath is empty.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	var opts []option.ClientOption
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}
	return storage.NewClient(ctx, opts...)
}

// GCSObject describes one write. Metadata ends up as x-goog-meta-* headers.
type GCSObject struct {
	Bucket      string
	Path        string
	ContentType string
	Metadata    map[string]string
}

// UploadObject streams r into the object and returns its gs:// URL. A failed
// copy aborts the write so no partial object is left behind.
func UploadObject(ctx context.Context, client *storage.Client, obj GCSObject, r io.Reader) (string, error) {
	if client == nil || obj.Bucket == "" || obj.Path == "" {
		return "", errors.New("gcs: client, bucket and path are required")
	}
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wc := client.Bucket(obj.Bucket).Object(obj.Path).NewWriter(wctx)
	wc.ContentType = obj.ContentType
	wc.Metadata = obj.Metadata
	wc.ChunkSize = 0 // single request for small documents
	if _, err := io.Copy(wc, r); err != nil {
		cancel()
		_ = wc.Close()
		return "", fmt.Errorf("gcs write %s: %w", obj.Path, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", obj.Path, err)
	}
	return ObjectURL(obj.Bucket, obj.Path), nil
}

// ObjectURL is the gs:// address of an object. Archived objects are private.
func ObjectURL(bucket, objectPath string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, objectPath)
}
