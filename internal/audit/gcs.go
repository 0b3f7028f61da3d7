package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/finassist/internal/dispatch"
	"github.com/google/uuid"
)

// ObjectWriter stores one object in a bucket.
type ObjectWriter interface {
	WriteObject(ctx context.Context, bucket, object string, data []byte) error
}

// GCSWriter writes objects with a shared Cloud Storage client.
type GCSWriter struct {
	client *storage.Client
}

// NewGCSWriter creates a storage client using Application Default Credentials.
func NewGCSWriter(ctx context.Context) (*GCSWriter, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSWriter: create storage client: %w", err)
	}
	return &GCSWriter{client: client}, nil
}

// Close closes the storage client.
func (w *GCSWriter) Close() error {
	return w.client.Close()
}

// WriteObject implements ObjectWriter.
func (w *GCSWriter) WriteObject(ctx context.Context, bucket, object string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ow := w.client.Bucket(bucket).Object(object).NewWriter(ctx)
	ow.ContentType = "application/json"

	if _, err := ow.Write(data); err != nil {
		_ = ow.Close()
		return fmt.Errorf("WriteObject: writing %s: %w", URI(bucket, object), err)
	}
	if err := ow.Close(); err != nil {
		return fmt.Errorf("WriteObject: finalize %s: %w", URI(bucket, object), err)
	}
	return nil
}

// GCSSink archives each result as a JSON object under
// <prefix>/<yyyy>/<mm>/<dd>/<id>.json.
type GCSSink struct {
	writer ObjectWriter
	bucket string
	prefix string
	now    func() time.Time
	newID  func() string
}

// NewGCSSink returns a sink writing to bucket under prefix.
func NewGCSSink(w ObjectWriter, bucket, prefix string) *GCSSink {
	return &GCSSink{
		writer: w,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// ObjectName returns the object path for an entry recorded at t.
func (s *GCSSink) ObjectName(id string, t time.Time) string {
	return path.Join(s.prefix, t.UTC().Format("2006/01/02"), id+".json")
}

// Record implements Sink.
func (s *GCSSink) Record(ctx context.Context, res *dispatch.Result) error {
	entry := Entry{
		ID:         s.newID(),
		RecordedAt: s.now().UTC(),
		Result:     res,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("GCSSink.Record: marshal entry: %w", err)
	}
	if err := s.writer.WriteObject(ctx, s.bucket, s.ObjectName(entry.ID, entry.RecordedAt), data); err != nil {
		return fmt.Errorf("GCSSink.Record: %w", err)
	}
	return nil
}

// URI renders a gs:// URI.
func URI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// Destination accepts either a bare bucket name or a gs://bucket/prefix URI
// in bucket and returns the bucket and the effective prefix.
func Destination(bucket, prefix string) (string, string) {
	if !strings.HasPrefix(bucket, "gs://") {
		return bucket, prefix
	}
	parts := strings.SplitN(strings.TrimPrefix(bucket, "gs://"), "/", 2)
	if len(parts) == 2 && strings.Trim(parts[1], "/") != "" {
		return parts[0], parts[1]
	}
	return parts[0], prefix
}
