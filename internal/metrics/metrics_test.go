package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
)

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestCountProcessed_BuildsDatum(t *testing.T) {
	mock := &mockCloudWatch{}
	e := NewCloudWatchEmitter(mock)

	e.CountProcessed(context.Background(), 3)

	if len(mock.inputs) != 1 {
		t.Fatalf("expected 1 PutMetricData call, got %d", len(mock.inputs))
	}
	in := mock.inputs[0]
	if *in.Namespace != "ShopSphere/OrderWorker" {
		t.Fatalf("wrong namespace: %s", *in.Namespace)
	}
	if len(in.MetricData) != 1 {
		t.Fatalf("expected 1 datum, got %d", len(in.MetricData))
	}
	d := in.MetricData[0]
	if *d.MetricName != "OrdersProcessed" || *d.Value != 3 {
		t.Fatalf("unexpected datum: %+v", d)
	}
}

func TestZeroCountsAreSkipped(t *testing.T) {
	mock := &mockCloudWatch{}
	e := NewCloudWatchEmitter(mock)

	e.CountProcessed(context.Background(), 0)
	e.CountDuplicate(context.Background(), 0)
	e.CountDropped(context.Background(), 0)

	if len(mock.inputs) != 0 {
		t.Fatalf("zero counts must not be emitted, got %d calls", len(mock.inputs))
	}
}

func TestEmitFailureIsSwallowed(t *testing.T) {
	mock := &mockCloudWatch{err: errors.New("throttled")}
	e := NewCloudWatchEmitter(mock)

	// must not panic or propagate
	e.CountDropped(context.Background(), 1)

	if len(mock.inputs) != 1 {
		t.Fatalf("expected the call to be attempted once")
	}
}
