// Package intent defines the order-intent message the checkout-completion
// collaborator enqueues and the worker consumes.
package intent

import (
	"encoding/json"
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"
)

// ProductLine is one purchased line item. Price is the unit price captured
// at checkout time, not re-derived, so the persisted order reflects the
// amount actually charged.
type ProductLine struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
	Price     float64 `json:"price" validate:"required,gt=0"`
}

// OrderIntent is the queue message body, JSON-encoded on the wire.
// IdempotencyKey is unique per completed checkout transaction (the payment
// session id) and is what collapses redeliveries into one order.
type OrderIntent struct {
	UserID         string        `json:"userId" validate:"required"`
	Products       []ProductLine `json:"products" validate:"required,min=1,dive"`
	TotalAmount    float64       `json:"totalAmount" validate:"required,gt=0"`
	IdempotencyKey string        `json:"idempotencyKey" validate:"required"`
}

// NewValidator returns a validator configured for intent payloads.
func NewValidator() *validatorv10.Validate {
	return validatorv10.New()
}

// Decode unmarshals and validates a raw message body. A failure here is a
// business validation error: the caller logs and drops the message.
func Decode(body []byte, v *validatorv10.Validate) (*OrderIntent, error) {
	var in OrderIntent
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("invalid message body: %w", err)
	}
	if err := v.Struct(&in); err != nil {
		return nil, fmt.Errorf("invalid order intent: %w", err)
	}
	return &in, nil
}

// ProductIDs returns the distinct product ids referenced by the intent, in
// first-seen order.
func (in *OrderIntent) ProductIDs() []string {
	seen := map[string]bool{}
	ids := make([]string, 0, len(in.Products))
	for _, p := range in.Products {
		if seen[p.ProductID] {
			continue
		}
		seen[p.ProductID] = true
		ids = append(ids, p.ProductID)
	}
	return ids
}
