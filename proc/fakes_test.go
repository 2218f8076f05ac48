package proc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disgoorg/snowflake/v2"
)

// fakeTransport plays tracks until the test finishes them or Stop is
// called.
type fakeTransport struct {
	id  int
	log *eventLog

	connectErr error
	playErr    func(it *Item) error

	mu       sync.Mutex
	finish   chan error
	once     *sync.Once
	started  chan *Item
	stops    atomic.Int32
	closed   atomic.Int32
	conn     atomic.Bool
	playing  atomic.Bool
	channels []snowflake.ID
}

func newFakeTransport(id int, log *eventLog) *fakeTransport {
	return &fakeTransport{id: id, log: log, started: make(chan *Item, 64)}
}

func (f *fakeTransport) Connect(ctx context.Context, channelID snowflake.ID) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.channels = append(f.channels, channelID)
	f.mu.Unlock()
	f.conn.Store(true)
	f.log.add("connect", f.id)
	return nil
}

func (f *fakeTransport) IsConnected() bool { return f.conn.Load() }
func (f *fakeTransport) IsPlaying() bool   { return f.playing.Load() }

func (f *fakeTransport) Play(ctx context.Context, it *Item) (<-chan error, error) {
	if f.playErr != nil {
		if err := f.playErr(it); err != nil {
			return nil, err
		}
	}
	ch := make(chan error, 1)
	f.mu.Lock()
	f.finish = ch
	f.once = &sync.Once{}
	f.mu.Unlock()
	f.playing.Store(true)
	f.started <- it
	return ch, nil
}

// end completes the current track with err.
func (f *fakeTransport) end(err error) {
	f.mu.Lock()
	ch, once := f.finish, f.once
	f.mu.Unlock()
	if ch == nil {
		return
	}
	once.Do(func() {
		f.playing.Store(false)
		ch <- err
	})
}

func (f *fakeTransport) Stop() {
	f.stops.Add(1)
	f.end(nil)
}

func (f *fakeTransport) Disconnect(ctx context.Context) error {
	f.closed.Add(1)
	f.conn.Store(false)
	f.log.add("disconnect", f.id)
	return nil
}

type logEntry struct {
	what string
	id   int
}

type eventLog struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *eventLog) add(what string, id int) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{what, id})
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), l.entries...)
}

// fakeResolver echoes the query back as an item. Queries starting with
// "bad" fail.
type fakeResolver struct {
	calls atomic.Int32
}

func (r *fakeResolver) Resolve(ctx context.Context, query string) (*Item, error) {
	r.calls.Add(1)
	if strings.HasPrefix(query, "bad") {
		return nil, errors.New("no results")
	}
	return item(query), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(ev Event) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) kinds() []EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventKind, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (n *recordingNotifier) has(kind EventKind) bool {
	for _, k := range n.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

type recordingHistory struct {
	mu     sync.Mutex
	titles []string
}

func (h *recordingHistory) RecordPlay(ctx context.Context, guildID snowflake.ID, it *Item) error {
	h.mu.Lock()
	h.titles = append(h.titles, it.Title)
	h.mu.Unlock()
	return nil
}

func (h *recordingHistory) played() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.titles...)
}
