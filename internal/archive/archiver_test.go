package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

type fakeUploader struct {
	lastInput *s3.PutObjectInput
	body      []byte
	err       error
}

func (f *fakeUploader) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastInput = params
	if params.Body != nil {
		b, _ := io.ReadAll(params.Body)
		f.body = b
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveRunUploadsGzippedManifest(t *testing.T) {
	up := &fakeUploader{}
	a := New(up, "replay-bucket", "replay-runs")

	completedAt := time.Date(2026, 1, 19, 15, 30, 0, 0, time.UTC)
	err := a.ArchiveRun(context.Background(), "run-123", quotation.Params{
		StartDate: "20260119",
		EndDate:   "20260119",
	}, 100, 2, "", completedAt)
	if err != nil {
		t.Fatalf("ArchiveRun: %v", err)
	}

	if up.lastInput == nil {
		t.Fatal("expected PutObject to be called")
	}
	if *up.lastInput.Bucket != "replay-bucket" {
		t.Errorf("bucket = %s, want replay-bucket", *up.lastInput.Bucket)
	}
	if *up.lastInput.Key != "replay-runs/run-123.jsonl.gz" {
		t.Errorf("key = %s, want replay-runs/run-123.jsonl.gz", *up.lastInput.Key)
	}

	gz, err := gzip.NewReader(bytes.NewReader(up.body))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gz.Close()

	var line manifestLine
	if err := json.NewDecoder(gz).Decode(&line); err != nil {
		t.Fatalf("decode manifest line: %v", err)
	}
	if line.RunID != "run-123" || line.EmittedCount != 100 || line.DroppedCount != 2 {
		t.Errorf("unexpected manifest line: %+v", line)
	}
}

func TestArchiveRunPropagatesUploadError(t *testing.T) {
	up := &fakeUploader{err: context.DeadlineExceeded}
	a := New(up, "replay-bucket", "replay-runs")

	err := a.ArchiveRun(context.Background(), "run-err", quotation.Params{StartDate: "20260119", EndDate: "20260119"}, 0, 0, "", time.Now())
	if err == nil {
		t.Fatal("expected error from failed upload")
	}
}
