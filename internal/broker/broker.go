// Package broker publishes quotation records onto the downstream event bus.
// A record is serialized to its canonical JSON wire form (internal/quotation)
// and produced to the topic matching its wind-code class, keyed by wind code
// so the broker preserves per-symbol ordering.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

// Topic names, one per symbol class.
const (
	TopicIndex = "quotation-index"
	TopicStock = "quotation-stock"
)

// TopicFor returns the topic a record should be published to, selected by
// its wind-code class.
func TopicFor(windCode string) string {
	if quotation.IsIndex(windCode) {
		return TopicIndex
	}
	return TopicStock
}

// Publisher is the narrow contract the pacer publishes through: one record
// in, success or permanent drop out. Retries and backoff are the
// publisher's concern, not the caller's.
type Publisher interface {
	// Publish sends payload to topic under partitionKey. It returns nil on
	// success. A non-nil error means every retry was exhausted (or the
	// payload was permanently malformed); the caller is expected to count
	// the record as dropped and move on, per the at-most-once contract.
	Publish(ctx context.Context, topic, partitionKey string, payload []byte) error
}

// rawProducer is the slice of a Kafka client this package depends on,
// narrowed so the retry/backoff logic can be tested without a broker.
type rawProducer interface {
	produce(ctx context.Context, topic, key string, value []byte) error
	Close()
}

// backoffSchedule is the exact retry cadence spec.md §4.6 pins: after the
// first attempt, three retries preceded by waits of 50ms, 200ms and 800ms
// (four attempts in all), then the record is dropped.
var backoffSchedule = []time.Duration{50 * time.Millisecond, 200 * time.Millisecond, 800 * time.Millisecond}

// KafkaPublisher publishes QuotationRecord payloads to Kafka via
// github.com/twmb/franz-go, the partitioned topic-based broker spec.md §1
// calls for. Retries are implemented here, independent of franz-go's own
// retry machinery, because the spec pins exact backoff values that must be
// testable without a live broker.
type KafkaPublisher struct {
	producer rawProducer

	dropped  int64
	onDrop   func(topic string)
	onPublish func(topic string)
}

// NewKafkaPublisher dials the given seed brokers and returns a ready
// Publisher. Callers should defer Close.
func NewKafkaPublisher(seedBrokers []string, onPublish, onDrop func(topic string)) (*KafkaPublisher, error) {
	cl, err := newKgoProducer(seedBrokers)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return &KafkaPublisher{producer: cl, onPublish: onPublish, onDrop: onDrop}, nil
}

// Close releases the underlying client.
func (p *KafkaPublisher) Close() {
	p.producer.Close()
}

// DroppedCount reports the number of records that exhausted every retry.
func (p *KafkaPublisher) DroppedCount() int64 { return p.dropped }

// ErrMalformedPayload marks a permanent failure: no retry will help.
var ErrMalformedPayload = errors.New("malformed publish payload")

// Publish attempts to produce payload to topic under partitionKey, retrying
// transient failures on the fixed backoff schedule. A publish that exhausts
// every attempt increments the dropped counter and returns an error; the
// record itself is never retried by the caller (at-most-once emission).
func (p *KafkaPublisher) Publish(ctx context.Context, topic, partitionKey string, payload []byte) error {
	if len(payload) == 0 {
		p.drop(topic)
		return ErrMalformedPayload
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		err := p.producer.produce(ctx, topic, partitionKey, payload)
		if err == nil {
			if p.onPublish != nil {
				p.onPublish(topic)
			}
			return nil
		}
		lastErr = err

		if attempt >= len(backoffSchedule) {
			break
		}

		select {
		case <-ctx.Done():
			p.drop(topic)
			return ctx.Err()
		case <-time.After(backoffSchedule[attempt]):
		}
	}

	p.drop(topic)
	log.Printf("broker: publish to %s key=%s exhausted retries: %v", topic, partitionKey, lastErr)
	return fmt.Errorf("publish exhausted retries: %w", lastErr)
}

func (p *KafkaPublisher) drop(topic string) {
	p.dropped++
	if p.onDrop != nil {
		p.onDrop(topic)
	}
}

// PublishRecord is a convenience wrapper that encodes rec to its wire form
// and routes it to the correct topic by wind-code class.
func PublishRecord(ctx context.Context, pub Publisher, rec quotation.Record) error {
	payload, err := quotation.EncodeWire(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.WindCode, err)
	}
	return pub.Publish(ctx, TopicFor(rec.WindCode), rec.WindCode, payload)
}
