package orders

import "time"

// Line is one persisted order line. Product holds the referenced product id;
// Price is the checkout-time unit price carried over from the intent message.
type Line struct {
	Product  string  `dynamodbav:"product"`
	Quantity int     `dynamodbav:"quantity"`
	Price    float64 `dynamodbav:"price"`
}

// Order is the item stored in the orders DynamoDB table. The table is keyed
// by idempotency_key, which is what makes duplicate inserts from overlapping
// redeliveries fail at the storage layer.
type Order struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK
	OrderID        string    `dynamodbav:"order_id"`
	User           string    `dynamodbav:"user"`
	Products       []Line    `dynamodbav:"products"`
	TotalAmount    float64   `dynamodbav:"total_amount"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
}
