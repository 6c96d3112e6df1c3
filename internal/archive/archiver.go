// Package archive uploads a completed run's manifest to S3, one object per
// run. Grounded on the teacher's periodic gzip-NDJSON trade archiver
// (internal/archive/archiver.go), but the periodic-cycle/rotation loop is
// replaced with a one-shot upload triggered by coordinator.Archiver, and
// the local filesystem sink is replaced with aws-sdk-go-v2/service/s3 — the
// teacher's config carried unused S3 fields that this package now exercises.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

// Uploader is the subset of *s3.Client the archiver depends on, narrowed
// for testability.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads a gzipped NDJSON manifest of a completed run to S3.
type Archiver struct {
	client Uploader
	bucket string
	prefix string
}

// New creates an Archiver. prefix is the S3 key prefix manifests are
// uploaded under, e.g. "replay-runs".
func New(client Uploader, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

// manifestLine is one NDJSON record describing the run outcome. A single
// line is written per run; the NDJSON shape matches the teacher's trade
// archive format even though there is only ever one record per object.
type manifestLine struct {
	RunID        string    `json:"run_id"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Symbols      []string  `json:"symbols,omitempty"`
	EmittedCount int64     `json:"emitted_count"`
	DroppedCount int64     `json:"dropped_count"`
	ErrorCause   string    `json:"error_cause,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}

// ArchiveRun gzips a manifest line describing the run and uploads it to
// {prefix}/{runId}.jsonl.gz. Its signature matches coordinator.Archiver
// structurally, so an *Archiver can be passed straight to
// coordinator.WithArchiver without either package importing the other.
func (a *Archiver) ArchiveRun(ctx context.Context, runID string, params quotation.Params, emitted, dropped int64, errorCause string, completedAt time.Time) error {
	line := manifestLine{
		RunID:        runID,
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
		Symbols:      params.Symbols(),
		EmittedCount: emitted,
		DroppedCount: dropped,
		ErrorCause:   errorCause,
		CompletedAt:  completedAt,
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(line); err != nil {
		gz.Close()
		return fmt.Errorf("encode run manifest %s: %w", runID, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip close run manifest %s: %w", runID, err)
	}

	key := fmt.Sprintf("%s/%s.jsonl.gz", a.prefix, runID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("upload run manifest %s: %w", runID, err)
	}
	return nil
}
