package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/polywatch/polywatch/internal/domain"
)

// multipartThreshold is the archive size above which the multipart uploader
// is used instead of a single PutObject.
const multipartThreshold = 8 * 1024 * 1024

// ActivityArchiveStore provides the read access the archiver needs. The
// Postgres ActivityStore satisfies it.
type ActivityArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Activity, error)
}

// ActivityArchiver implements domain.Archiver by querying expiring activity
// rows, serializing them to JSONL, and uploading the result to S3. Deleting
// the archived rows from the primary store is the caller's responsibility and
// happens after the upload succeeds.
type ActivityArchiver struct {
	writer *Writer
	store  ActivityArchiveStore
	now    func() time.Time
}

// NewActivityArchiver creates an ActivityArchiver.
func NewActivityArchiver(writer *Writer, store ActivityArchiveStore) *ActivityArchiver {
	return &ActivityArchiver{
		writer: writer,
		store:  store,
		now:    time.Now,
	}
}

// ArchiveActivities uploads all activities timestamped before the cutoff to
// archive/activities/<cutoff>_<uploaded-at>.jsonl and returns the count. A
// run with nothing to archive uploads nothing and returns zero.
func (a *ActivityArchiver) ArchiveActivities(ctx context.Context, before time.Time) (int64, error) {
	activities, err := a.store.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activities query: %w", err)
	}
	if len(activities) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(activities)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activities marshal: %w", err)
	}

	// Key includes the upload time so repeated runs with the same cutoff
	// never overwrite an earlier archive.
	path := fmt.Sprintf("archive/activities/%s_%s.jsonl",
		before.UTC().Format("2006-01-02"),
		a.now().UTC().Format("20060102T150405Z"),
	)

	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activities upload: %w", err)
	}

	return int64(len(activities)), nil
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// object per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ActivityArchiver)(nil)
