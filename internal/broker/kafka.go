package broker

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
)

// kgoProducer adapts *kgo.Client to the rawProducer interface this package
// retries against.
type kgoProducer struct {
	client *kgo.Client
}

func newKgoProducer(seedBrokers []string) (*kgoProducer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(seedBrokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, err
	}
	return &kgoProducer{client: cl}, nil
}

func (k *kgoProducer) produce(ctx context.Context, topic, key string, value []byte) error {
	rec := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	return k.client.ProduceSync(ctx, rec).FirstErr()
}

func (k *kgoProducer) Close() {
	k.client.Close()
}
