package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/totegamma/mediadb/internal/domain"
)

// KafkaPublisher writes record events to a Kafka topic keyed by record id,
// so events of one record stay ordered within a partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka client")
	}

	return &KafkaPublisher{
		client: client,
		topic:  topic,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.RecordEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal record event")
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.ID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return errors.Wrap(err, "publish record event")
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
