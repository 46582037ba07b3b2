package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gomarketplace/configs"
	"gomarketplace/internal/domain"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

var errUnknownType = errors.New("unknown event type")

// messageProducer is the subset of *kafka.Producer used here.
type messageProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

type Producer struct {
	producer     messageProducer
	topic        string
	flushTimeout int
}

func NewProducer(cfg *configs.Config) (*Producer, error) {
	conf := &kafka.ConfigMap{
		"bootstrap.servers": cfg.KF.BootstrapServers,
	}
	p, err := kafka.NewProducer(conf)
	if err != nil {
		return nil, fmt.Errorf("error creating the producer - %w", err)
	}
	return &Producer{producer: p, topic: cfg.KF.Topic, flushTimeout: cfg.KF.FlushTimeout}, nil
}

func (p *Producer) Produce(ctx context.Context, message []byte, topic, key string) error {
	kafkaMsg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Value: message,
		Key:   []byte(key),
	}
	kafkaChan := make(chan kafka.Event, 1)
	err := p.producer.Produce(kafkaMsg, kafkaChan)
	if err != nil {
		return fmt.Errorf("error sending message to kafka: %w", err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for kafka delivery: %w", ctx.Err())
	case e := <-kafkaChan:
		switch ev := e.(type) {
		case kafka.Error:
			return fmt.Errorf("error while sending message to kafka: %w", ev)
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				return fmt.Errorf("error while sending message to kafka: %w", ev.TopicPartition.Error)
			}
			return nil
		default:
			return errUnknownType
		}
	}
}

// Publish sends a cart event keyed by product id.
func (p *Producer) Publish(ctx context.Context, event domain.CartEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error encoding cart event: %w", err)
	}
	return p.Produce(ctx, value, p.topic, event.ProductID)
}

func (p *Producer) Close() {
	p.producer.Flush(p.flushTimeout)
	p.producer.Close()
}
