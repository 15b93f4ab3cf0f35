package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	RetryMax int
	Timeout  time.Duration
}

func newSaramaConfig(cfg KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Producer.Retry.Max = cfg.RetryMax
	sc.Producer.Timeout = cfg.Timeout
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	// same booking ref, same partition
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc
}

type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	const op = "events.NewKafka"

	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewKafkaWithProducer(producer, cfg.Topic), nil
}

// NewKafkaWithProducer wraps an existing producer, e.g. a sarama mock.
func NewKafkaWithProducer(producer sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error {
	const op = "events.Kafka.PublishBookingConfirmed"

	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.BookingRef),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(ev.Type)},
			{Key: []byte("transaction_id"), Value: []byte(ev.TransactionID)},
		},
		Timestamp: ev.ConfirmedAt,
	}

	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
