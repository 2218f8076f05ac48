package proc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(title string) *Item {
	return &Item{StreamRef: "ref://" + title, Title: title, URL: "https://example.com/" + title}
}

func titles(items []*Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	assert.Equal(t, 1, q.Enqueue(item("a")))
	assert.Equal(t, 2, q.Enqueue(item("b")))
	assert.Equal(t, 3, q.Enqueue(item("c")))

	for _, want := range []string{"a", "b", "c"} {
		it, err := q.Dequeue(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, it.Title)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_DequeueIdleTimeout(t *testing.T) {
	q := NewQueue()
	start := time.Now()
	_, err := q.Dequeue(context.Background(), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrIdleTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestQueue_DequeueCancelled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := q.Dequeue(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_DequeueWakesOnEnqueue(t *testing.T) {
	q := NewQueue()
	got := make(chan *Item, 1)
	go func() {
		it, err := q.Dequeue(context.Background(), time.Minute)
		if err == nil {
			got <- it
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(item("late"))

	select {
	case it := <-got:
		assert.Equal(t, "late", it.Title)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

func TestQueue_RemoveAt(t *testing.T) {
	q := NewQueue()
	for _, s := range []string{"a", "b", "c"} {
		q.Enqueue(item(s))
	}

	it, err := q.RemoveAt(2)
	require.NoError(t, err)
	assert.Equal(t, "b", it.Title)
	assert.Equal(t, []string{"a", "c"}, titles(q.PeekAll()))

	for _, pos := range []int{0, -1, 3} {
		_, err := q.RemoveAt(pos)
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "position %d", pos)
	}
	assert.Equal(t, 2, q.Len())
}

func TestQueue_ClearAndPeekSnapshot(t *testing.T) {
	q := NewQueue()
	q.Enqueue(item("a"))
	q.Enqueue(item("b"))

	snap := q.PeekAll()
	assert.Equal(t, 2, q.Clear())
	assert.Len(t, snap, 2, "snapshot must not alias the queue")
	assert.Empty(t, q.PeekAll())
	assert.Equal(t, 0, q.Clear())
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	positions := make(chan int, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			positions <- q.Enqueue(item("x"))
		}()
	}
	wg.Wait()
	close(positions)

	seen := make(map[int]bool)
	for p := range positions {
		assert.False(t, seen[p], "duplicate position %d", p)
		seen[p] = true
	}
	assert.Equal(t, 100, q.Len())
}
