// Package queue hides the managed message-queue service behind a small
// send/receive/acknowledge contract so the processor can be tested (or run
// locally) against a substitute backend.
package queue

import (
	"context"
	"errors"
	"fmt"
)

// ErrQueueNotConfigured is returned when a logical queue name has no
// destination mapped in the client's configuration.
var ErrQueueNotConfigured = errors.New("queue not configured")

// Message is a single received message. Handle is the backend receipt
// required to acknowledge (delete) the message.
type Message struct {
	Body       []byte
	Handle     string
	Attributes map[string]string
}

// Client is the capability contract the processor is written against.
// Implementations make network calls; none of the operations retry internally.
type Client interface {
	// Send serializes payload onto the named queue with string-typed
	// metadata attributes attached.
	Send(ctx context.Context, queueName string, payload []byte, attributes map[string]string) error

	// Receive long-polls the named queue for up to maxMessages. An empty
	// result after the poll window is not an error.
	Receive(ctx context.Context, queueName string, maxMessages int) ([]Message, error)

	// Acknowledge permanently removes a received message so it is not
	// redelivered after its visibility timeout lapses.
	Acknowledge(ctx context.Context, queueName string, handle string) error
}

func notConfigured(queueName string) error {
	return fmt.Errorf("%w: %q", ErrQueueNotConfigured, queueName)
}
