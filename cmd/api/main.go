package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/shopsphere/order-worker/internal/aws"
	"github.com/shopsphere/order-worker/internal/handlers"
	"github.com/shopsphere/order-worker/internal/queue"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterCheckoutRoutes(r, cfg)

	return r
}

func main() {
	_ = godotenv.Load()

	queueURL := os.Getenv("ORDERS_QUEUE_URL")
	if queueURL == "" {
		log.Fatalf("missing required environment variable ORDERS_QUEUE_URL")
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	cfg := handlers.HandlerConfig{
		Queue:     queue.NewSQSClient(clients.SQS, map[string]string{"orders": queueURL}),
		QueueName: "orders",
	}

	r := setupRouter(cfg)

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("running checkout api on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
