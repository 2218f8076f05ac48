package proc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceRotator_Pick(t *testing.T) {
	m := NewManager(&fakeResolver{}, nil, nil, nil, Config{})
	r := NewPresenceRotator(nil, m)

	r.sources = nil
	assert.Equal(t, defaultPresence, r.pick(context.Background()))

	r.sources = []presenceSource{
		func(context.Context, *Manager) string { return "a" },
		func(context.Context, *Manager) string { return "" },
		func(context.Context, *Manager) string { return "b" },
	}
	first := r.pick(context.Background())
	assert.Contains(t, []string{"a", "b"}, first)
	for i := 0; i < 10; i++ {
		next := r.pick(context.Background())
		assert.NotEqual(t, first, next, "the same status is never shown twice in a row")
		first = next
	}
}

func TestSessionsPresence(t *testing.T) {
	m := NewManager(&fakeResolver{}, nil, nil, nil, Config{})
	assert.Empty(t, sessionsPresence(context.Background(), m))

	m.Registry().GetOrCreateQueue(testGuild)
	assert.Equal(t, "music in 1 server(s)", sessionsPresence(context.Background(), m))
}
