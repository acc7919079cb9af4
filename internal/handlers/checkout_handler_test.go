package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/shopsphere/order-worker/internal/queue"
)

type fakeQueue struct {
	sent       [][]byte
	attributes []map[string]string
	sendErr    error
}

func (q *fakeQueue) Send(ctx context.Context, queueName string, payload []byte, attributes map[string]string) error {
	if q.sendErr != nil {
		return q.sendErr
	}
	q.sent = append(q.sent, payload)
	q.attributes = append(q.attributes, attributes)
	return nil
}

func (q *fakeQueue) Receive(ctx context.Context, queueName string, maxMessages int) ([]queue.Message, error) {
	return nil, nil
}

func (q *fakeQueue) Acknowledge(ctx context.Context, queueName string, handle string) error {
	return nil
}

func newTestRouter(q queue.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterCheckoutRoutes(r, HandlerConfig{Queue: q, QueueName: "orders"})
	return r
}

func TestCheckoutComplete_EnqueuesIntent(t *testing.T) {
	q := &fakeQueue{}
	r := newTestRouter(q)

	body := `{"userId":"u1","products":[{"productId":"p1","quantity":2,"price":50}],"totalAmount":100,"idempotencyKey":"sess_1"}`
	req := httptest.NewRequest(http.MethodPost, "/checkout/complete", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(q.sent) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(q.sent))
	}
	var payload map[string]any
	if err := json.Unmarshal(q.sent[0], &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["idempotencyKey"] != "sess_1" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	attrs := q.attributes[0]
	if attrs["orderType"] != "purchase" || attrs["userId"] != "u1" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
}

func TestCheckoutComplete_IdempotencyKeyFromHeader(t *testing.T) {
	q := &fakeQueue{}
	r := newTestRouter(q)

	body := `{"userId":"u1","products":[{"productId":"p1","quantity":1,"price":10}],"totalAmount":10}`
	req := httptest.NewRequest(http.MethodPost, "/checkout/complete", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "sess_hdr")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var payload map[string]any
	_ = json.Unmarshal(q.sent[0], &payload)
	if payload["idempotencyKey"] != "sess_hdr" {
		t.Fatalf("expected key from header, got %v", payload["idempotencyKey"])
	}
}

func TestCheckoutComplete_ValidationFailure(t *testing.T) {
	q := &fakeQueue{}
	r := newTestRouter(q)

	req := httptest.NewRequest(http.MethodPost, "/checkout/complete", strings.NewReader(`{"userId":"u1","products":[],"totalAmount":0}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(q.sent) != 0 {
		t.Fatalf("nothing should be enqueued on validation failure")
	}
}

func TestCheckoutComplete_EnqueueFailure(t *testing.T) {
	q := &fakeQueue{sendErr: errors.New("unreachable")}
	r := newTestRouter(q)

	body := `{"userId":"u1","products":[{"productId":"p1","quantity":1,"price":10}],"totalAmount":10,"idempotencyKey":"k1"}`
	req := httptest.NewRequest(http.MethodPost, "/checkout/complete", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
