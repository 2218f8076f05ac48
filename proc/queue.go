package proc

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Item is a resolved, ready-to-play track. Items are never mutated after
// the resolver returns them.
type Item struct {
	StreamRef   string
	Title       string
	URL         string
	Channel     string
	Duration    time.Duration
	RequestedBy snowflake.ID
}

// Queue is an unbounded FIFO of pending items for one guild.
type Queue struct {
	mu    sync.Mutex
	items []*Item
	wake  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Enqueue appends the item and returns its 1-based position.
func (q *Queue) Enqueue(it *Item) int {
	q.mu.Lock()
	q.items = append(q.items, it)
	pos := len(q.items)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return pos
}

// Dequeue removes and returns the oldest item. When the queue is empty it
// waits for an enqueue, the idle timeout or ctx, whichever comes first.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Item, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return it, nil
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-timer.C:
			return nil, ErrIdleTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// PeekAll returns a snapshot of the pending items in play order.
func (q *Queue) PeekAll() []*Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Item, len(q.items))
	copy(out, q.items)
	return out
}

// RemoveAt removes the item at the 1-based position pos.
func (q *Queue) RemoveAt(pos int) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if pos < 1 || pos > len(q.items) {
		return nil, ErrIndexOutOfRange
	}
	idx := pos - 1
	it := q.items[idx]
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	return it, nil
}

// Clear drops every pending item and reports how many were removed.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
