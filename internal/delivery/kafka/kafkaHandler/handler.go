package kafkaHandler

import (
	"encoding/json"
	"fmt"
	"sync"

	"gomarketplace/internal/domain"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// Handler decodes cart events and keeps per-op counters.
type Handler struct {
	log *logrus.Logger

	mu     sync.Mutex
	counts map[domain.Op]int
}

func NewHandler(log *logrus.Logger) *Handler {
	return &Handler{
		log:    log,
		counts: make(map[domain.Op]int),
	}
}

func (h *Handler) HandleMessage(message []byte, topic kafka.TopicPartition, cn int) error {
	event, err := parseEvent(message)
	if err != nil {
		// committed anyway so a bad message does not block the partition
		h.log.WithError(err).WithField("consumer", cn).Warn("skipping cart event")
		return nil
	}

	h.mu.Lock()
	h.counts[event.Op]++
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"consumer":    cn,
		"partition":   topic.Partition,
		"offset":      topic.Offset.String(),
		"event_id":    event.EventID,
		"op":          event.Op,
		"product_id":  event.ProductID,
		"quantity":    event.Quantity,
		"cart_size":   event.CartSize,
		"occurred_at": event.OccurredAt,
	}).Info("cart event")
	return nil
}

// Counts returns how many events of each op were handled.
func (h *Handler) Counts() map[domain.Op]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[domain.Op]int, len(h.counts))
	for op, n := range h.counts {
		out[op] = n
	}
	return out
}

func parseEvent(message []byte) (domain.CartEvent, error) {
	var event domain.CartEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return event, fmt.Errorf("failed to decode cart event: %w", err)
	}
	switch event.Op {
	case domain.OpAdd, domain.OpIncrement, domain.OpDecrement:
	default:
		return event, fmt.Errorf("unknown cart op %q", event.Op)
	}
	if event.ProductID == "" {
		return event, fmt.Errorf("cart event %s has no product id", event.EventID)
	}
	return event, nil
}
