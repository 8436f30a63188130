package kafka

import (
	"context"
	"github.com/segmentio/kafka-go"
	"log"
	"sync"
	"time"
)

// Handler returns nil only when the message is done and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

// reader is the part of *kafka.Reader the consumer drives.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       reader
	workers int

	// Backoff between attempts on a failing message, doubled up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers)
}

func newConsumer(r reader, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, Backoff: 200 * time.Millisecond, MaxBackoff: 10 * time.Second}
}

// Start blocks until ctx is cancelled or the reader fails.
//
// A partition is always served by the same worker, one message at a time.
// Producers key by aggregate id, so events of one order stay in order, and a
// commit never passes a message that has not been handled. A failing message
// is retried in place until it succeeds or ctx ends.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if !c.process(ctx, h, m) {
					return
				}
			}
		}(lanes[i])
	}
	stop := func() {
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
		_ = c.r.Close()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// process handles then commits m. It reports false when ctx ended first; m
// is left uncommitted so the group hands it out again.
func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) bool {
	wait := c.Backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			break
		}
		log.Printf("[kafka] handle topic=%s partition=%d offset=%d attempt=%d: %v", m.Topic, m.Partition, m.Offset, attempt, err)
		if !c.sleep(ctx, &wait) {
			return false
		}
	}

	wait = c.Backoff
	for {
		err := c.r.CommitMessages(ctx, m)
		if err == nil {
			return true
		}
		log.Printf("[kafka] commit topic=%s partition=%d offset=%d: %v", m.Topic, m.Partition, m.Offset, err)
		if !c.sleep(ctx, &wait) {
			return false
		}
	}
}

func (c *Consumer) sleep(ctx context.Context, wait *time.Duration) bool {
	t := time.NewTimer(*wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return false
	}
	if *wait *= 2; *wait > c.MaxBackoff {
		*wait = c.MaxBackoff
	}
	return true
}
