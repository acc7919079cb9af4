// Package worker drains the orders queue, turning each order-intent message
// into at most one persisted order.
package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/shopsphere/order-worker/internal/catalog"
	"github.com/shopsphere/order-worker/internal/intent"
	"github.com/shopsphere/order-worker/internal/metrics"
	"github.com/shopsphere/order-worker/internal/orders"
	"github.com/shopsphere/order-worker/internal/queue"
)

// Processor lifecycle states. The only transitions are
// RUNNING -> DRAINING (shutdown signal) -> STOPPED (loop exited).
type State int32

const (
	StateRunning State = iota
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}

// OrderStore is the persistence contract the processor depends on.
type OrderStore interface {
	FindByIdempotencyKey(ctx context.Context, key string) (*orders.Order, error)
	Insert(ctx context.Context, order orders.Order) error
}

// ProductFinder resolves referenced product ids.
type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]catalog.Product, error)
}

// Config tunes the poll loop. Zero values fall back to defaults.
type Config struct {
	QueueName     string        // default "orders"
	BatchSize     int           // default 10, caps in-flight work per batch
	IdleInterval  time.Duration // default 5s, sleep after an empty receive
	ErrorCooldown time.Duration // default 10s, sleep after a failed receive
}

func (c Config) withDefaults() Config {
	if c.QueueName == "" {
		c.QueueName = "orders"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = 5 * time.Second
	}
	if c.ErrorCooldown <= 0 {
		c.ErrorCooldown = 10 * time.Second
	}
	return c
}

// Processor is the long-running consumer. Construct it with NewProcessor and
// drive it with Run; all collaborators are injected so tests can substitute
// fakes for the queue and the stores.
type Processor struct {
	queue    queue.Client
	orders   OrderStore
	products ProductFinder
	metrics  metrics.Emitter
	cfg      Config
	validate *validatorv10.Validate
	state    atomic.Int32
}

// NewProcessor creates a processor with its collaborators injected.
func NewProcessor(q queue.Client, orderStore OrderStore, products ProductFinder, em metrics.Emitter, cfg Config) *Processor {
	if em == nil {
		em = metrics.Noop{}
	}
	return &Processor{
		queue:    q,
		orders:   orderStore,
		products: products,
		metrics:  em,
		cfg:      cfg.withDefaults(),
		validate: intent.NewValidator(),
	}
}

// State reports the current lifecycle state.
func (p *Processor) State() State {
	return State(p.state.Load())
}

// Run polls the queue until ctx is canceled. Cancellation is observed
// between batches only: an in-flight batch runs to completion so a persist
// is never interrupted halfway. Run always returns nil on clean drain.
func (p *Processor) Run(ctx context.Context) error {
	p.state.Store(int32(StateRunning))
	defer p.state.Store(int32(StateStopped))

	go func() {
		<-ctx.Done()
		p.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	}()

	// Batches run on a detached context so shutdown does not cancel
	// in-flight persists or acknowledgements.
	batchCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			log.Printf("[worker] draining complete, stopping")
			return nil
		}

		msgs, err := p.queue.Receive(ctx, p.cfg.QueueName, p.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				// shutdown interrupted the long poll
				continue
			}
			log.Printf("[worker] receive failed: %v (cooling down %s)", err, p.cfg.ErrorCooldown)
			sleep(ctx, p.cfg.ErrorCooldown)
			continue
		}

		if len(msgs) == 0 {
			sleep(ctx, p.cfg.IdleInterval)
			continue
		}

		p.processBatch(batchCtx, msgs)
	}
}

// processBatch fans the batch out to one goroutine per message and joins
// before returning. A message's failure never aborts its siblings.
func (p *Processor) processBatch(ctx context.Context, msgs []queue.Message) {
	var wg sync.WaitGroup
	var processed, duplicate, dropped atomic.Int64

	for _, m := range msgs {
		wg.Add(1)
		go func(m queue.Message) {
			defer wg.Done()

			switch p.processMessage(ctx, m) {
			case outcomePersisted:
				processed.Add(1)
			case outcomeDuplicate:
				duplicate.Add(1)
			case outcomeDropped:
				dropped.Add(1)
			}

			// Always acknowledge: with no dead-letter queue configured,
			// retaining a poison message would block the queue via
			// redelivery forever. A failed ack is only logged; the message
			// redelivers after its visibility timeout, which dedup absorbs.
			if err := p.queue.Acknowledge(ctx, p.cfg.QueueName, m.Handle); err != nil {
				log.Printf("[worker] acknowledge failed, message will redeliver: %v", err)
			}
		}(m)
	}
	wg.Wait()

	p.metrics.CountProcessed(ctx, int(processed.Load()))
	p.metrics.CountDuplicate(ctx, int(duplicate.Load()))
	p.metrics.CountDropped(ctx, int(dropped.Load()))
}

type outcome int

const (
	outcomePersisted outcome = iota
	outcomeDuplicate
	outcomeDropped
)

func (p *Processor) processMessage(ctx context.Context, m queue.Message) outcome {
	in, err := intent.Decode(m.Body, p.validate)
	if err != nil {
		log.Printf("[worker] dropping message: %v", err)
		return outcomeDropped
	}

	ids := in.ProductIDs()
	found, err := p.products.FindByIDs(ctx, ids)
	if err != nil {
		log.Printf("[worker] product lookup failed for key=%s: %v", in.IdempotencyKey, err)
		return outcomeDropped
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		log.Printf("[worker] dropping order key=%s: missing products %v", in.IdempotencyKey, missing)
		return outcomeDropped
	}

	existing, err := p.orders.FindByIdempotencyKey(ctx, in.IdempotencyKey)
	if err != nil {
		log.Printf("[worker] dedup lookup failed for key=%s: %v", in.IdempotencyKey, err)
		return outcomeDropped
	}
	if existing != nil {
		log.Printf("[worker] order already persisted for key=%s (order=%s)", in.IdempotencyKey, existing.OrderID)
		return outcomeDuplicate
	}

	order := orders.Order{
		IdempotencyKey: in.IdempotencyKey,
		OrderID:        uuid.NewString(),
		User:           in.UserID,
		TotalAmount:    in.TotalAmount,
		Products:       make([]orders.Line, 0, len(in.Products)),
	}
	for _, pl := range in.Products {
		order.Products = append(order.Products, orders.Line{
			Product:  pl.ProductID,
			Quantity: pl.Quantity,
			Price:    pl.Price,
		})
	}

	if err := p.orders.Insert(ctx, order); err != nil {
		if errors.Is(err, orders.ErrDuplicateOrder) {
			// lost the race against another redelivery; the order exists
			log.Printf("[worker] duplicate insert for key=%s, treating as success", in.IdempotencyKey)
			return outcomeDuplicate
		}
		log.Printf("[worker] insert failed for key=%s, order lost: %v", in.IdempotencyKey, err)
		return outcomeDropped
	}

	log.Printf("[worker] persisted order=%s key=%s total=%.2f", order.OrderID, in.IdempotencyKey, in.TotalAmount)
	return outcomePersisted
}

func missingIDs(want []string, found []catalog.Product) []string {
	have := map[string]bool{}
	for _, p := range found {
		have[p.ProductID] = true
	}
	var missing []string
	for _, id := range want {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// sleep blocks for d or until ctx is canceled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
