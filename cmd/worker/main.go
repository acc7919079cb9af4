package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shopsphere/order-worker/internal/aws"
	"github.com/shopsphere/order-worker/internal/catalog"
	"github.com/shopsphere/order-worker/internal/metrics"
	"github.com/shopsphere/order-worker/internal/orders"
	"github.com/shopsphere/order-worker/internal/queue"
	"github.com/shopsphere/order-worker/internal/worker"
)

const ordersQueue = "orders"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	queueURL := mustEnv("ORDERS_QUEUE_URL")
	ordersTable := mustEnv("ORDERS_TABLE")
	productsTable := mustEnv("PRODUCTS_TABLE")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	q := queue.NewSQSClient(clients.SQS, map[string]string{
		ordersQueue: queueURL,
	})
	orderStore := orders.NewStore(clients.DynamoDB, ordersTable)
	products := catalog.NewStore(clients.DynamoDB, productsTable)

	var em metrics.Emitter = metrics.NewCloudWatchEmitter(clients.CloudWatch)
	if os.Getenv("DISABLE_METRICS") == "true" {
		em = metrics.Noop{}
	}

	cfg := worker.Config{
		QueueName:     ordersQueue,
		BatchSize:     envInt("WORKER_BATCH_SIZE", 10),
		IdleInterval:  envDuration("WORKER_IDLE_INTERVAL", 5*time.Second),
		ErrorCooldown: envDuration("WORKER_ERROR_COOLDOWN", 10*time.Second),
	}

	p := worker.NewProcessor(q, orderStore, products, em, cfg)

	log.Printf("[worker] starting, queue=%s batch=%d", queueURL, cfg.BatchSize)
	if err := p.Run(ctx); err != nil {
		log.Fatalf("worker stopped with error: %v", err)
	}
	log.Printf("[worker] stopped cleanly")
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("missing required environment variable %s", key)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return d
}
