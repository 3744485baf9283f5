// Package archive writes completed profiles to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/fitness-onboarding/internal/application"
	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	"github.com/oksasatya/fitness-onboarding/pkg/helpers"
)

// ObjectWriter stores one object and returns its URL.
type ObjectWriter interface {
	Upload(ctx context.Context, objectPath, contentType string, meta map[string]string, r io.Reader) (string, error)
}

// GCSBucket writes objects to a Google Cloud Storage bucket.
type GCSBucket struct {
	Client *storage.Client
	Bucket string
}

func (b GCSBucket) Upload(ctx context.Context, objectPath, contentType string, meta map[string]string, r io.Reader) (string, error) {
	return helpers.UploadObject(ctx, b.Client, helpers.GCSObject{
		Bucket:      b.Bucket,
		Path:        objectPath,
		ContentType: contentType,
		Metadata:    meta,
	}, r)
}

// Snapshot is the archived JSON document.
type Snapshot struct {
	UserID     string             `json:"user_id"`
	Stage      entity.Stage       `json:"stage"`
	Profile    entity.UserProfile `json:"profile"`
	ArchivedAt time.Time          `json:"archived_at"`
}

type SnapshotArchive struct {
	Store ObjectWriter
	Now   func() time.Time
}

func NewSnapshotArchive(store ObjectWriter) *SnapshotArchive {
	return &SnapshotArchive{Store: store, Now: time.Now}
}

// ObjectPath is profiles/<uid>/<unix ms>.json.
func ObjectPath(id application.Identity, at time.Time) string {
	return fmt.Sprintf("profiles/%s/%d.json", id.String(), at.UnixMilli())
}

func (a *SnapshotArchive) Archive(ctx context.Context, id application.Identity, p entity.UserProfile) (string, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	at := now().UTC()
	b, err := json.Marshal(Snapshot{UserID: id.String(), Stage: p.Stage(), Profile: p, ArchivedAt: at})
	if err != nil {
		return "", err
	}
	meta := map[string]string{"user_id": id.String(), "stage": string(p.Stage())}
	return a.Store.Upload(ctx, ObjectPath(id, at), "application/json", meta, bytes.NewReader(b))
}
