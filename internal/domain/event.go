package domain

import (
	"time"

	"github.com/google/uuid"
)

type Op string

const (
	OpAdd       Op = "add"
	OpIncrement Op = "increment"
	OpDecrement Op = "decrement"
)

// CartEvent describes one applied mutation. Quantity is the value after the
// mutation and is 0 when the item was removed or never existed.
type CartEvent struct {
	EventID    string    `json:"event_id"`
	Op         Op        `json:"op"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	CartSize   int       `json:"cart_size"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewCartEvent(op Op, productID string, quantity, cartSize int) CartEvent {
	return CartEvent{
		EventID:    uuid.NewString(),
		Op:         op,
		ProductID:  productID,
		Quantity:   quantity,
		CartSize:   cartSize,
		OccurredAt: time.Now().UTC(),
	}
}
