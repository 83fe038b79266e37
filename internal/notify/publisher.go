package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"vsbridge/internal/logging"
)

// Publisher delivers events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
	Close() error
}

// KafkaPublisher publishes events to Kafka with a synchronous producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewKafkaPublisher connects a producer to brokers.
func NewKafkaPublisher(brokers []string, logger *log.Entry) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newKafkaPublisher(producer, logger), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, logger *log.Entry) *KafkaPublisher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &KafkaPublisher{
		producer: producer,
		logger:   logger.WithField("component", "kafka-publisher"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: time.Now(),
		Headers:   []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"event_id":  event.ID,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

// LogPublisher writes events to the log. It backs deployments without a broker.
type LogPublisher struct {
	logger *log.Entry
}

func NewLogPublisher(logger *log.Entry) *LogPublisher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LogPublisher{logger: logger.WithField("component", "log-publisher")}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key string, event Event) error {
	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"event_id":  event.ID,
		"type":      event.Type,
		"recipient": event.Recipient,
	}).Info(event.Subject)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
