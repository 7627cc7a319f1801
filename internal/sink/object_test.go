package sink

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	puts []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	// Drain the body now since PutObjectInput.Body is a one-shot io.Reader.
	if params.Body != nil {
		data, _ := io.ReadAll(params.Body)
		params.Body = bytes.NewReader(data)
	}
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func TestObjectSink_FlushUploadsUnderPartitionKey(t *testing.T) {
	fake := &fakeS3{}
	obj := &ObjectSink{client: fake, bucket: "viewlog-logs", keyPrefix: "events"}
	obj.bufferedSink = newBufferedSink("object", "viewlog", time.UTC, obj.persistToObject)

	ctx := context.Background()
	ts := time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)
	if err := obj.Write(ctx, mustEvent(ts, 1)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := obj.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if len(fake.puts) != 1 {
		t.Fatalf("got %d PutObject calls, want 1", len(fake.puts))
	}
	key := *fake.puts[0].Key
	wantPrefix := "events/viewlog/year=2025/month=06/day=15/hour=09/viewlog-000000-"
	if len(key) < len(wantPrefix) || key[:len(wantPrefix)] != wantPrefix {
		t.Errorf("key = %q, want prefix %q", key, wantPrefix)
	}
	if *fake.puts[0].Bucket != "viewlog-logs" {
		t.Errorf("bucket = %q, want viewlog-logs", *fake.puts[0].Bucket)
	}
}
