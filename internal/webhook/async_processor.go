package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"prwarden/internal/logging"
)

type AsyncConfig struct {
	QueueSize int
	Workers   int
}

// AsyncProcessor decouples webhook HTTP handling from review runs: the
// handler enqueues and returns, workers review. The queue is bounded;
// a full queue rejects the delivery rather than stalling the server.
type AsyncProcessor struct {
	processor *Processor
	logger    *logging.Logger
	jobs      chan job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type job struct {
	eventType  string
	payload    []byte
	deliveryID string
}

func NewAsyncProcessor(processor *Processor, cfg AsyncConfig, logger *logging.Logger) *AsyncProcessor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &AsyncProcessor{
		processor: processor,
		logger:    logger,
		jobs:      make(chan job, cfg.QueueSize),
		cancel:    cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	return p
}

var ErrQueueFull = errors.New("webhook queue full")

// Enqueue hands a delivery to the worker pool without blocking. The
// payload is copied; callers may reuse their buffer.
func (p *AsyncProcessor) Enqueue(ctx context.Context, eventType string, payload []byte, deliveryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.processor == nil {
		return errors.New("webhook processor is nil")
	}

	j := job{eventType: eventType, payload: append([]byte(nil), payload...), deliveryID: deliveryID}

	select {
	case p.jobs <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop halts the workers and waits for in-flight reviews to finish.
// Jobs still sitting in the queue are dropped.
func (p *AsyncProcessor) Stop(ctx context.Context) error {
	p.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("stop webhook workers: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (p *AsyncProcessor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			if err := p.processor.Process(context.Background(), j.eventType, j.payload, j.deliveryID); err != nil {
				p.logger.Error("webhook processing failed",
					"event", j.eventType, "delivery", j.deliveryID, "error", err)
			}
		}
	}
}
