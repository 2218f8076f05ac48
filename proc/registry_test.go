package proc

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGuild snowflake.ID = 1000000000000000001

func TestRegistry_LazySessions(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Queue(testGuild))
	assert.False(t, r.HasActiveLoop(testGuild))
	_, ok := r.LastActivity(testGuild)
	assert.False(t, ok)

	q := r.GetOrCreateQueue(testGuild)
	require.NotNil(t, q)
	assert.Same(t, q, r.GetOrCreateQueue(testGuild))
	assert.Same(t, q, r.Queue(testGuild))
	assert.Equal(t, 1, r.Sessions())
	assert.Equal(t, []snowflake.ID{testGuild}, r.Guilds())
}

func TestRegistry_RegisterLoopRejectsSecondPlayer(t *testing.T) {
	r := NewRegistry()
	p1 := newPlayer(playerOptions{guildID: testGuild, registry: r})
	p2 := newPlayer(playerOptions{guildID: testGuild, registry: r})

	require.NoError(t, r.RegisterLoop(testGuild, p1))
	assert.ErrorIs(t, r.RegisterLoop(testGuild, p2), ErrAlreadyRunning)
	assert.Same(t, p1, r.Player(testGuild))
}

func TestRegistry_EnqueueSpawnsOnce(t *testing.T) {
	r := NewRegistry()
	spawned := 0
	spawn := func(prev *Player) *Player {
		spawned++
		assert.Nil(t, prev)
		return newPlayer(playerOptions{guildID: testGuild, registry: r})
	}

	res := r.Enqueue(testGuild, 42, item("a"), spawn)
	assert.Equal(t, 1, res.position)
	assert.True(t, res.immediate)
	require.NotNil(t, res.started)

	res = r.Enqueue(testGuild, 43, item("b"), spawn)
	assert.Equal(t, 2, res.position)
	assert.False(t, res.immediate)
	assert.Nil(t, res.started)
	assert.Equal(t, 1, spawned)

	s := r.lookup(testGuild, false)
	assert.Equal(t, snowflake.ID(43), s.textChannel())
}

func TestRegistry_RetireDropsState(t *testing.T) {
	r := NewRegistry()
	res := r.Enqueue(testGuild, 0, item("a"), func(*Player) *Player {
		return newPlayer(playerOptions{guildID: testGuild, registry: r})
	})
	p := res.started
	q := r.Queue(testGuild)

	r.Retire(testGuild)

	assert.Nil(t, r.Queue(testGuild))
	assert.Nil(t, r.Player(testGuild))
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, r.Sessions())
	assert.Error(t, p.ctx.Err(), "retire cancels the player")
	assert.Same(t, p, r.predecessor(testGuild))

	// Retiring an absent guild is a no-op.
	r.Retire(testGuild)

	// The next enqueue builds a fresh session chained to the old player.
	var prev *Player
	r.Enqueue(testGuild, 0, item("b"), func(pp *Player) *Player {
		prev = pp
		return newPlayer(playerOptions{guildID: testGuild, registry: r})
	})
	assert.Same(t, p, prev)
	assert.NotSame(t, q, r.Queue(testGuild))

	r.forget(p)
	assert.Nil(t, r.predecessor(testGuild))
}

func TestRegistry_RetireIdle(t *testing.T) {
	r := NewRegistry()
	res := r.Enqueue(testGuild, 0, item("a"), func(*Player) *Player {
		return newPlayer(playerOptions{guildID: testGuild, registry: r})
	})
	p := res.started

	assert.Equal(t, idleBusy, r.retireIdle(p), "pending items keep the player alive")

	_, err := p.sess.queue.Dequeue(p.ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, idleRetired, r.retireIdle(p))
	assert.Equal(t, 0, r.Sessions())
	assert.Equal(t, idleSuperseded, r.retireIdle(p))
}

func TestRegistry_LastActivity(t *testing.T) {
	r := NewRegistry()
	q := r.GetOrCreateQueue(testGuild)
	require.NotNil(t, q)

	before, ok := r.LastActivity(testGuild)
	require.True(t, ok)
	time.Sleep(2 * time.Millisecond)
	r.lookup(testGuild, false).touch()
	after, _ := r.LastActivity(testGuild)
	assert.True(t, after.After(before))
}

func TestRegistry_EnqueueWithoutLoopKeepsOrder(t *testing.T) {
	r := NewRegistry()
	want := []string{"trackA", "trackB", "trackC", "trackD"}
	for i, title := range want {
		res := r.Enqueue(testGuild, 0, item(title), nil)
		assert.Equal(t, i+1, res.position)
	}
	assert.Equal(t, want, titles(r.Queue(testGuild).PeekAll()))
	assert.False(t, r.HasActiveLoop(testGuild))

	q := r.Queue(testGuild)
	_, err := q.RemoveAt(5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, 4, q.Len())
}
