// cmd/viewlog/main.go — synthetic OTT-service user-behavior log generator.
//
// Wires the Catalog, Sink, and Pipeline packages per §6/§9: load config,
// open the catalog, build the configured sink, run the pipeline to
// completion (batch mode) or until interrupted (streaming mode).
//
// Usage:
//
//	viewlog -config /etc/viewlog/config.toml
//
// Environment overrides (see internal/config):
//
//	VIEWLOG_POSTGRES_DSN, VIEWLOG_AWS_PROFILE, VIEWLOG_S3_REGION,
//	VIEWLOG_KINESIS_REGION, VIEWLOG_LOG_LEVEL, VIEWLOG_LOG_FORMAT,
//	VIEWLOG_OUTPUT_DIR
//
// Exit codes (§7): 0 on a normal completion or a clean interrupt, 1 on a
// fatal configuration/catalog/sink startup error, 2 on a fatal pipeline
// error surfaced mid-run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourflock/viewlog/internal/catalog"
	"github.com/yourflock/viewlog/internal/config"
	"github.com/yourflock/viewlog/internal/logger"
	"github.com/yourflock/viewlog/internal/metrics"
	"github.com/yourflock/viewlog/internal/pipeline"
	"github.com/yourflock/viewlog/internal/sink"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "viewlog: %v\n", err)
		return 1
	}

	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	store, err := catalog.Open(cfg.PostgresDSN, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Error("catalog open failed", "err", err)
		return 1
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error("invalid timezone", "timezone", cfg.Timezone, "err", err)
		return 1
	}

	sk, err := sink.New(ctx, cfg, loc)
	if err != nil {
		log.Error("sink open failed", "sink_type", cfg.SinkType, "err", err)
		return 1
	}

	p, err := pipeline.New(cfg, store, sk, log)
	if err != nil {
		log.Error("pipeline init failed", "err", err)
		return 1
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(log, cfg.MetricsAddr)
	}

	log.Info("viewlog_starting", "mode", cfg.GenerationMode, "sink", cfg.SinkType, "dau", cfg.DAU)

	if err := p.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info("viewlog_interrupted")
			return 0
		}
		log.Error("pipeline run failed", "err", err)
		return 2
	}

	log.Info("viewlog_completed")
	return 0
}

// serveMetrics mounts the Prometheus scrape endpoint on addr. A failure to
// bind is logged but never takes down the generator itself — metrics are
// observability, not a correctness dependency of the pipeline.
func serveMetrics(log *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server failed", "addr", addr, "err", err)
	}
}
