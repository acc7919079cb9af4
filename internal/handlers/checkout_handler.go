package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/shopsphere/order-worker/internal/intent"
	"github.com/shopsphere/order-worker/internal/queue"
)

// HandlerConfig groups dependencies for the checkout-completion endpoint.
type HandlerConfig struct {
	Queue     queue.Client
	QueueName string
}

// RegisterCheckoutRoutes registers the enqueue-side route. In production the
// payment gateway callback plays this role; this endpoint stands in for it
// during local development and exercises the same send path.
func RegisterCheckoutRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := intent.NewValidator()

	r.POST("/checkout/complete", func(c *gin.Context) {
		ctx := c.Request.Context()

		var in intent.OrderIntent
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
			return
		}

		// the payment-session id usually arrives as a header
		if in.IdempotencyKey == "" {
			in.IdempotencyKey = c.GetHeader("Idempotency-Key")
		}

		if err := v.Struct(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "validation_failed",
				"fields": validationErrorsToMap(err),
			})
			return
		}

		payload, err := json.Marshal(in)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encode_failed"})
			return
		}

		attrs := map[string]string{
			"orderType": "purchase",
			"userId":    in.UserID,
		}
		if err := cfg.Queue.Send(ctx, cfg.QueueName, payload, attrs); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue_failed", "detail": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":         "queued",
			"idempotencyKey": in.IdempotencyKey,
		})
	})
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Error()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
