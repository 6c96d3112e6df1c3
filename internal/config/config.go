// Package config loads replay engine configuration from flags/environment,
// following the teacher's flag.XVar + env-with-default pattern
// (internal/config/config.go), generalized from feed-simulator settings to
// spec.md §6's "source DSN, broker bootstrap list, K/V endpoint, default
// speedMultiplier, default preloadMinutes, default bufferMaxSize" list.
package config

import (
	"flag"
	"os"
	"strconv"
)

// Config holds all replay engine configuration.
type Config struct {
	// HTTP control surface
	HTTPPort int
	Host     string

	// Source database
	MongoURI string

	// Event bus
	KafkaBrokers string // comma-separated bootstrap list

	// K/V store
	RedisAddr string

	// Replay defaults. They are loaded into Config only: start requests are
	// validated as sent and do not fall back to these values.
	DefaultSpeedMultiplier int
	DefaultPreloadMinutes  int
	DefaultBufferMaxSize   int

	// S3 run-manifest archival
	S3Bucket string
	S3Region string
	S3Prefix string
}

// Load parses flags (falling back to environment variables, then
// hardcoded defaults) into a Config.
func Load() *Config {
	c := &Config{}

	flag.IntVar(&c.HTTPPort, "port", envInt("REPLAY_PORT", 8200), "HTTP control surface port")
	flag.StringVar(&c.Host, "host", envStr("REPLAY_HOST", "0.0.0.0"), "Listen host")

	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", "mongodb://localhost:27017/replay"), "MongoDB connection URI (quotation source)")
	flag.StringVar(&c.KafkaBrokers, "kafka-brokers", envStr("KAFKA_BROKERS", "localhost:9092"), "Comma-separated Kafka bootstrap brokers")
	flag.StringVar(&c.RedisAddr, "redis-addr", envStr("REDIS_ADDR", "localhost:6379"), "Redis address (preheat K/V store)")

	flag.IntVar(&c.DefaultSpeedMultiplier, "default-speed", envInt("DEFAULT_SPEED_MULTIPLIER", 1), "Default speed multiplier (0 = max speed)")
	flag.IntVar(&c.DefaultPreloadMinutes, "default-preload-minutes", envInt("DEFAULT_PRELOAD_MINUTES", 5), "Default time-window width in minutes")
	flag.IntVar(&c.DefaultBufferMaxSize, "default-buffer-max-size", envInt("DEFAULT_BUFFER_MAX_SIZE", 5000), "Default bounded-buffer capacity")

	flag.StringVar(&c.S3Bucket, "s3-bucket", envStr("S3_BUCKET", ""), "S3 bucket for completed-run manifests (empty = archival disabled)")
	flag.StringVar(&c.S3Region, "s3-region", envStr("S3_REGION", "us-east-1"), "AWS region for S3")
	flag.StringVar(&c.S3Prefix, "s3-prefix", envStr("S3_PREFIX", "replay-runs"), "S3 key prefix for run manifests")

	flag.Parse()

	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
