// Package metrics emits worker counters to CloudWatch. Emission is
// best-effort: a metrics failure is logged and never propagated, so it
// cannot affect message processing.
package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/shopsphere/order-worker/internal/aws"
)

const namespace = "ShopSphere/OrderWorker"

// Emitter reports worker outcome counters.
type Emitter interface {
	CountProcessed(ctx context.Context, n int)
	CountDuplicate(ctx context.Context, n int)
	CountDropped(ctx context.Context, n int)
}

// CloudWatchEmitter implements Emitter against CloudWatch.
type CloudWatchEmitter struct {
	client  aws.CloudWatchAPI
	nowFunc func() time.Time
}

// NewCloudWatchEmitter returns an emitter publishing to the worker namespace.
func NewCloudWatchEmitter(client aws.CloudWatchAPI) *CloudWatchEmitter {
	return &CloudWatchEmitter{
		client:  client,
		nowFunc: time.Now,
	}
}

func (e *CloudWatchEmitter) put(ctx context.Context, metricName string, n int) {
	if n == 0 {
		return
	}
	now := e.nowFunc()
	value := float64(n)
	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: awsString(namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &metricName,
				Value:      &value,
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  &now,
			},
		},
	})
	if err != nil {
		log.Printf("[metrics] put metric %s failed: %v", metricName, err)
	}
}

func (e *CloudWatchEmitter) CountProcessed(ctx context.Context, n int) {
	e.put(ctx, "OrdersProcessed", n)
}

func (e *CloudWatchEmitter) CountDuplicate(ctx context.Context, n int) {
	e.put(ctx, "OrdersDuplicate", n)
}

func (e *CloudWatchEmitter) CountDropped(ctx context.Context, n int) {
	e.put(ctx, "OrdersDropped", n)
}

// Noop discards all counters. Used in tests and local runs without CloudWatch.
type Noop struct{}

func (Noop) CountProcessed(ctx context.Context, n int) {}
func (Noop) CountDuplicate(ctx context.Context, n int) {}
func (Noop) CountDropped(ctx context.Context, n int)   {}

func awsString(s string) *string { return &s }
