package kafka

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"gomarketplace/configs"
	"gomarketplace/pkg/prometheus"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

const readTimeout = 100 * time.Millisecond

type Handler interface {
	HandleMessage(message []byte, topic kafka.TopicPartition, cn int) error
}

type Consumer struct {
	consumer       *kafka.Consumer
	handler        Handler
	log            *logrus.Logger
	stop           atomic.Bool
	stopped        chan struct{}
	consumerNumber int
}

func NewConsumer(cfg *configs.Config, handler Handler, log *logrus.Logger, consumerNumber int) (*Consumer,
	error) {

	config := &kafka.ConfigMap{
		"bootstrap.servers":        cfg.KF.BootstrapServers,
		"group.id":                 cfg.KF.ConsumerGroup,
		"session.timeout.ms":       cfg.KF.SessionTimeoutMs,
		"enable.auto.offset.store": false,
		"enable.auto.commit":       true,
		"auto.commit.interval.ms":  cfg.KF.AutoCommitIntervalMs,
		"auto.offset.reset":        cfg.KF.AutoOffsetReset,
	}

	c, err := kafka.NewConsumer(config)
	if err != nil {
		return nil, fmt.Errorf("error creating consumer: %v", err)
	}
	if err = c.Subscribe(cfg.KF.Topic, nil); err != nil {
		return nil, fmt.Errorf("error subscribing to topic: %v", err)
	}
	return &Consumer{
		consumer:       c,
		handler:        handler,
		log:            log,
		stopped:        make(chan struct{}),
		consumerNumber: consumerNumber,
	}, nil
}

func (c *Consumer) Start() {
	defer close(c.stopped)

	for !c.stop.Load() {
		kafkaMsg, err := c.consumer.ReadMessage(readTimeout)
		if err != nil {
			var kErr kafka.Error
			if errors.As(err, &kErr) && kErr.IsTimeout() {
				continue
			}
			c.log.Errorf("error reading message from kafka %v", err)
			prometheus.KafkaErrorsTotal.WithLabelValues(topicOf(kafkaMsg), "read").Inc()
		}
		if kafkaMsg == nil {
			continue
		}
		topic := topicOf(kafkaMsg)
		if err := c.handler.HandleMessage(kafkaMsg.Value, kafkaMsg.TopicPartition, c.consumerNumber); err != nil {
			c.log.Errorf("error handling message from kafka %v", err)
			prometheus.KafkaMessagesProcessed.WithLabelValues(topic, "error").Inc()
			continue
		}
		prometheus.KafkaMessagesProcessed.WithLabelValues(topic, "success").Inc()
		if _, err = c.consumer.StoreMessage(kafkaMsg); err != nil {
			c.log.Errorf("error storing message to kafka %v", err)
			prometheus.KafkaErrorsTotal.WithLabelValues(topic, "store_offset").Inc()
			continue
		}
	}
}

func (c *Consumer) Stop() error {
	c.stop.Store(true)
	<-c.stopped
	if _, err := c.consumer.Commit(); err != nil {
		var kErr kafka.Error
		if !errors.As(err, &kErr) || kErr.Code() != kafka.ErrNoOffset {
			return err
		}
	}
	c.log.Info("Commited offset")
	return c.consumer.Close()
}

func topicOf(msg *kafka.Message) string {
	if msg == nil || msg.TopicPartition.Topic == nil {
		return "unknown"
	}
	return *msg.TopicPartition.Topic
}
