package kafka

import (
	"context"
	"errors"
	"fmt"
	"github.com/segmentio/kafka-go"
	"sync"
	"testing"
	"time"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		m := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeReader) commits(partition int) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, m := range f.committed {
		if m.Partition == partition {
			out = append(out, m.Offset)
		}
	}
	return out
}

func msg(partition int, offset int64) kafka.Message {
	return kafka.Message{Topic: "t", Partition: partition, Offset: offset, Key: []byte(fmt.Sprint("order-", partition))}
}

// calls records handled offsets per partition.
type calls struct {
	mu  sync.Mutex
	log map[int][]int64
}

func (c *calls) add(m kafka.Message) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.log == nil {
		c.log = map[int][]int64{}
	}
	c.log[m.Partition] = append(c.log[m.Partition], m.Offset)
	n := 0
	for _, o := range c.log[m.Partition] {
		if o == m.Offset {
			n++
		}
	}
	return n
}

func (c *calls) of(partition int) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.log[partition]...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func equal(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConsumer_RetriesFailedMessageBeforeLaterOffsets(t *testing.T) {
	fr := &fakeReader{pending: []kafka.Message{msg(0, 0), msg(0, 1), msg(1, 0), msg(0, 2)}}
	c := newConsumer(fr, 2)
	c.Backoff, c.MaxBackoff = time.Millisecond, 4*time.Millisecond

	var seen calls
	h := func(_ context.Context, m kafka.Message) error {
		if n := seen.add(m); m.Partition == 0 && m.Offset == 1 && n < 3 {
			return errors.New("store unavailable")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	waitFor(t, func() bool { return len(fr.commits(0)) == 3 && len(fr.commits(1)) == 1 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start: %v", err)
	}

	if got := seen.of(0); !equal(got, []int64{0, 1, 1, 1, 2}) {
		t.Fatalf("partition 0 handled out of order: %v", got)
	}
	if got := fr.commits(0); !equal(got, []int64{0, 1, 2}) {
		t.Fatalf("partition 0 commits: %v", got)
	}
	if !fr.closed {
		t.Fatal("reader not closed")
	}
}

func TestConsumer_NeverCommitsPastAStuckMessage(t *testing.T) {
	fr := &fakeReader{pending: []kafka.Message{msg(0, 0), msg(0, 1), msg(0, 2)}}
	c := newConsumer(fr, 4)
	c.Backoff, c.MaxBackoff = time.Millisecond, 2*time.Millisecond

	var seen calls
	h := func(_ context.Context, m kafka.Message) error {
		seen.add(m)
		if m.Offset == 1 {
			return errors.New("store unavailable")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx, h) }()

	waitFor(t, func() bool { return len(seen.of(0)) >= 4 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start: %v", err)
	}

	if got := fr.commits(0); !equal(got, []int64{0}) {
		t.Fatalf("only offset 0 may be committed, got %v", got)
	}
	for _, o := range seen.of(0) {
		if o == 2 {
			t.Fatal("offset 2 handled while offset 1 was still failing")
		}
	}
}
