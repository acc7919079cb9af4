package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	internalaws "github.com/shopsphere/order-worker/internal/aws"
)

const (
	// waitTimeSeconds is the server-side long-poll window. 20s is the SQS
	// maximum and keeps the empty-queue request rate low.
	waitTimeSeconds = 20

	// visibilityTimeoutSeconds hides a received-but-unacknowledged message
	// from other consumers. Set generously to cover slow DynamoDB writes.
	visibilityTimeoutSeconds = 300
)

// SQSClient implements Client against SQS. It holds a static map from
// logical queue name to queue URL; there is no other local state.
type SQSClient struct {
	sqs       internalaws.SQSAPI
	queueURLs map[string]string
}

// NewSQSClient returns a client bound to the given name -> queue URL map.
func NewSQSClient(sqsClient internalaws.SQSAPI, queueURLs map[string]string) *SQSClient {
	return &SQSClient{
		sqs:       sqsClient,
		queueURLs: queueURLs,
	}
}

func (c *SQSClient) url(queueName string) (string, error) {
	u, ok := c.queueURLs[queueName]
	if !ok || u == "" {
		return "", notConfigured(queueName)
	}
	return u, nil
}

// Send publishes payload to the named queue. attributes are sent as
// string-typed MessageAttributes. Transport errors are wrapped and
// propagated to the caller, not retried here.
func (c *SQSClient) Send(ctx context.Context, queueName string, payload []byte, attributes map[string]string) error {
	queueURL, err := c.url(queueName)
	if err != nil {
		return err
	}

	body := string(payload)
	input := &sqs.SendMessageInput{
		QueueUrl:    &queueURL,
		MessageBody: &body,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: &v,
			}
		}
		input.MessageAttributes = msgAttrs
	}

	if _, err := c.sqs.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Receive long-polls the named queue. It returns an empty slice when the
// poll window elapses with nothing available.
func (c *SQSClient) Receive(ctx context.Context, queueName string, maxMessages int) ([]Message, error) {
	queueURL, err := c.url(queueName)
	if err != nil {
		return nil, err
	}

	out, err := c.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              &queueURL,
		MaxNumberOfMessages:   int32(maxMessages),
		WaitTimeSeconds:       waitTimeSeconds,
		VisibilityTimeout:     visibilityTimeoutSeconds,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := Message{}
		if m.Body != nil {
			msg.Body = []byte(*m.Body)
		}
		if m.ReceiptHandle != nil {
			msg.Handle = *m.ReceiptHandle
		}
		if len(m.MessageAttributes) > 0 {
			msg.Attributes = map[string]string{}
			for k, v := range m.MessageAttributes {
				if v.StringValue != nil {
					msg.Attributes[k] = *v.StringValue
				}
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Acknowledge deletes a message by its receipt handle.
func (c *SQSClient) Acknowledge(ctx context.Context, queueName string, handle string) error {
	queueURL, err := c.url(queueName)
	if err != nil {
		return err
	}

	_, err = c.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &queueURL,
		ReceiptHandle: &handle,
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
