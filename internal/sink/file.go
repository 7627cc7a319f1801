package sink

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// FileSink is the local-disk file backend of §4.6: two-bucket buffering,
// NDJSON flush, Hive-style partition directories under outputDir/topic.
type FileSink struct {
	*bufferedSink
	outputDir string
}

// NewFileSink builds a FileSink writing under outputDir/topic/year=.../
// month=.../day=.../hour=.../.
func NewFileSink(outputDir, topic string, loc *time.Location) *FileSink {
	fs := &FileSink{outputDir: outputDir}
	fs.bufferedSink = newBufferedSink("file", topic, loc, fs.persistToDisk)
	return fs
}

func (fs *FileSink) persistToDisk(_ context.Context, partitionPath, filename string, data []byte) error {
	dir := filepath.Join(fs.outputDir, fs.bufferedSink.topic, partitionPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, filename), data, 0o644)
}
