package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quantreplay/replay-engine/internal/api"
	"github.com/quantreplay/replay-engine/internal/archive"
	"github.com/quantreplay/replay-engine/internal/broker"
	"github.com/quantreplay/replay-engine/internal/calendar"
	"github.com/quantreplay/replay-engine/internal/config"
	"github.com/quantreplay/replay-engine/internal/coordinator"
	"github.com/quantreplay/replay-engine/internal/kv"
	"github.com/quantreplay/replay-engine/internal/preheat"
	"github.com/quantreplay/replay-engine/internal/source"
	"github.com/quantreplay/replay-engine/internal/status"
)

func main() {
	cfg := config.Load()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("replay engine starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	// MongoDB (quotation source + run manifests)
	store, err := source.NewStore(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer store.Close(context.Background())

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("index creation failed: %v", err)
	}

	quotationSource := source.NewMongoSource(store.DB())
	runStore := source.NewRunStore(store)

	// Redis (preheat K/V store)
	kvStore, err := kv.NewRedisStore(fmt.Sprintf("redis://%s/0", cfg.RedisAddr))
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer kvStore.Close()
	if err := kvStore.Ping(ctx); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}

	// Kafka (broker publisher)
	brokers := strings.Split(cfg.KafkaBrokers, ",")
	publisher, err := broker.NewKafkaPublisher(brokers, nil, nil)
	if err != nil {
		log.Fatalf("kafka connection failed: %v", err)
	}
	defer publisher.Close()

	// Trading calendar (UTC; no holidays are configured, so only weekends
	// are skipped)
	loc := time.UTC
	cal := calendar.New(loc)

	// Preheat tasks
	registry := preheat.NewRegistry(
		&preheat.PrecloseTask{Source: quotationSource, KV: kvStore, Cal: cal},
		&preheat.NineTurnTask{Source: quotationSource, KV: kvStore, Cal: cal},
		&preheat.MovingAverageTask{Source: quotationSource, KV: kvStore, Cal: cal},
	)

	// S3 run-manifest archival (opt-in: only active when a bucket is set)
	var archiver *archive.Archiver
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
		if err != nil {
			log.Fatalf("aws config load failed: %v", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)
		archiver = archive.New(s3Client, cfg.S3Bucket, cfg.S3Prefix)
	}

	// Status stream fan-out
	statusMgr := status.NewManager()

	coordOpts := []coordinator.Option{
		coordinator.WithRunRecorder(runStore),
		coordinator.WithNotifier(statusMgr),
	}
	if archiver != nil {
		coordOpts = append(coordOpts, coordinator.WithArchiver(archiver))
	}
	coord := coordinator.New(loc, cal, quotationSource, publisher, registry, coordOpts...)

	mux := http.NewServeMux()
	apiServer := api.NewServer(coord, statusMgr)
	apiServer.Register(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		coord.Stop()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("HTTP control surface listening on http://%s", addr)
	log.Printf("Health check: http://%s/health", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}

	log.Println("replay engine stopped")
}
