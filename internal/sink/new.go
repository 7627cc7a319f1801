package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/yourflock/viewlog/internal/config"
)

// New builds the Sink named by cfg.SinkType (§3, §4.6, §6).
func New(ctx context.Context, cfg *config.Config, loc *time.Location) (Sink, error) {
	switch cfg.SinkType {
	case config.SinkFile:
		return NewFileSink(cfg.OutputDir, cfg.Topic, loc), nil
	case config.SinkObject:
		return NewObjectSink(ctx, cfg.S3Region, cfg.AWSProfile, cfg.AWSAccessKeyID, cfg.AWSAccessKeySecret, cfg.S3Bucket, cfg.S3KeyPrefix, cfg.Topic, loc)
	case config.SinkStream:
		return NewStreamSink(ctx, cfg.KinesisRegion, cfg.AWSProfile, cfg.AWSAccessKeyID, cfg.AWSAccessKeySecret, cfg.KinesisStreamName)
	default:
		return nil, fmt.Errorf("sink: unknown sink type %q", cfg.SinkType)
	}
}
