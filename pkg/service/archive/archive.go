// Package archive writes expiring memory records to Cloud Storage as
// JSON Lines before retention cleanup deletes them.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
)

// GCS archives records into one object per cleanup run
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

var _ interfaces.Archiver = &GCS{}

// Option configures GCS
type Option func(*GCS)

// WithPrefix sets the object name prefix, e.g. "coachmem/archive"
func WithPrefix(prefix string) Option {
	return func(g *GCS) {
		g.prefix = strings.Trim(prefix, "/")
	}
}

// WithClock overrides the clock used for object names
func WithClock(now func() time.Time) Option {
	return func(g *GCS) {
		g.now = now
	}
}

// New creates a GCS archiver using application default credentials
func New(ctx context.Context, bucket string, opts ...Option) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("archive bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}

	g := &GCS{
		client: client,
		bucket: bucket,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Archive uploads the records. Nothing is written for an empty batch.
func (g *GCS) Archive(ctx context.Context, records []*model.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	name := ObjectName(g.prefix, g.now())
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"

	if err := Encode(w, records); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive object", goerr.V("bucket", g.bucket), goerr.V("object", name))
	}

	logging.From(ctx).Info("archived memory records",
		"bucket", g.bucket,
		"object", name,
		"count", len(records),
	)
	return nil
}

// Close releases the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}

// ObjectName returns the object path for a run at t, partitioned by day
func ObjectName(prefix string, t time.Time) string {
	t = t.UTC()
	name := fmt.Sprintf("%s/memories-%s.jsonl", t.Format("2006/01/02"), t.Format("20060102T150405.000000000Z"))
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// archivedRecord is the line format. The embedding is kept so an
// archive can be restored without recomputing vectors.
type archivedRecord struct {
	*model.MemoryRecord
	Embedding []float32 `json:"embedding,omitempty"`
}

// Encode writes one JSON object per record, newline terminated
func Encode(w io.Writer, records []*model.MemoryRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(archivedRecord{MemoryRecord: r, Embedding: r.Embedding}); err != nil {
			return goerr.Wrap(err, "failed to encode memory record", goerr.V("id", r.ID))
		}
	}
	return nil
}
