package proc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

const (
	DefaultIdleTimeout  = 600 * time.Second
	DefaultLeaveTimeout = 5 * time.Second
)

// TransportFactory creates the voice transport for a guild's next player.
type TransportFactory func(guildID snowflake.ID) Transport

type Config struct {
	IdleTimeout  time.Duration
	LeaveTimeout time.Duration
}

// Manager is the command-facing surface of the scheduler.
type Manager struct {
	registry     *Registry
	resolver     Resolver
	newTransport TransportFactory
	notifier     Notifier
	history      History
	cfg          Config
}

var (
	VoiceManager *Manager
	voiceMu      sync.RWMutex
)

// SetVoiceManager installs the process-wide manager used by command handlers.
func SetVoiceManager(m *Manager) {
	voiceMu.Lock()
	VoiceManager = m
	voiceMu.Unlock()
}

// GetVoiceManager returns the process-wide manager, or nil before the
// client is ready.
func GetVoiceManager() *Manager {
	voiceMu.RLock()
	defer voiceMu.RUnlock()
	return VoiceManager
}

func NewManager(resolver Resolver, newTransport TransportFactory, notifier Notifier, history History, cfg Config) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.LeaveTimeout <= 0 {
		cfg.LeaveTimeout = DefaultLeaveTimeout
	}
	return &Manager{
		registry:     NewRegistry(),
		resolver:     resolver,
		newTransport: newTransport,
		notifier:     notifier,
		history:      history,
		cfg:          cfg,
	}
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

type EnqueueRequest struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
	TextChannelID  snowflake.ID
	UserID         snowflake.ID
	Query          string
}

type EnqueueResult struct {
	Item     *Item
	Position int
	// Immediate is set when the item is next to play and nothing is
	// currently streaming.
	Immediate bool
}

// Enqueue resolves the query and appends the result to the guild's queue,
// starting a player when the guild has none.
func (m *Manager) Enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error) {
	if req.VoiceChannelID == 0 {
		return nil, ErrNotInVoice
	}

	it, err := m.resolver.Resolve(ctx, req.Query)
	if err != nil {
		if !errors.Is(err, ErrResolution) {
			err = fmt.Errorf("%w: %w", ErrResolution, err)
		}
		return nil, err
	}
	it.RequestedBy = req.UserID

	res := m.registry.Enqueue(req.GuildID, req.TextChannelID, it, func(prev *Player) *Player {
		return newPlayer(playerOptions{
			guildID:   req.GuildID,
			channelID: req.VoiceChannelID,
			timeout:   m.cfg.IdleTimeout,
			registry:  m.registry,
			prev:      prev,
			transport: m.newTransport(req.GuildID),
			notifier:  m.notifier,
			history:   m.history,
		})
	})
	if res.started != nil {
		sys.LogVoice(sys.MsgVoiceStartingPlayer, req.GuildID)
		res.started.start()
	}
	metricEnqueued.Inc()

	return &EnqueueResult{Item: it, Position: res.position, Immediate: res.immediate}, nil
}

// Skip stops the current track of the guild.
func (m *Manager) Skip(guildID snowflake.ID) (*Item, error) {
	p := m.registry.Player(guildID)
	if p == nil {
		return nil, ErrNothingPlaying
	}
	return p.Skip()
}

// Queue returns a snapshot of the pending items.
func (m *Manager) Queue(guildID snowflake.ID) []*Item {
	q := m.registry.Queue(guildID)
	if q == nil {
		return nil
	}
	return q.PeekAll()
}

// ListQueue returns the titles of the pending items in play order.
func (m *Manager) ListQueue(guildID snowflake.ID) []string {
	items := m.Queue(guildID)
	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	return titles
}

// NowPlaying returns the item being streamed in the guild, or nil.
func (m *Manager) NowPlaying(guildID snowflake.ID) *Item {
	if p := m.registry.Player(guildID); p != nil {
		return p.Current()
	}
	return nil
}

// IsConnected reports whether the guild's player holds a live voice
// connection.
func (m *Manager) IsConnected(guildID snowflake.ID) bool {
	p := m.registry.Player(guildID)
	return p != nil && p.transport.IsConnected()
}

// RemoveAt removes the pending item at the 1-based position pos.
func (m *Manager) RemoveAt(guildID snowflake.ID, pos int) (*Item, error) {
	q := m.registry.Queue(guildID)
	if q == nil {
		return nil, ErrIndexOutOfRange
	}
	return q.RemoveAt(pos)
}

// Clear drops every pending item and leaves the current track alone.
func (m *Manager) Clear(guildID snowflake.ID) int {
	q := m.registry.Queue(guildID)
	if q == nil {
		return 0
	}
	return q.Clear()
}

// Leave stops playback, drops the guild's queue and waits up to the
// configured leave timeout for the player to disconnect.
func (m *Manager) Leave(ctx context.Context, guildID snowflake.ID) error {
	p := m.registry.Player(guildID)
	if !m.registry.RequestLeave(guildID) {
		return ErrNotConnected
	}
	if p == nil {
		return nil
	}

	timer := time.NewTimer(m.cfg.LeaveTimeout)
	defer timer.Stop()
	select {
	case <-p.Done():
	case <-timer.C:
		sys.LogWarn(sys.MsgVoiceLeaveTimeout, guildID, m.cfg.LeaveTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Shutdown leaves every guild concurrently.
func (m *Manager) Shutdown(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range m.registry.Guilds() {
		wg.Add(1)
		go func(id snowflake.ID) {
			defer wg.Done()
			if err := m.Leave(ctx, id); err != nil && !errors.Is(err, ErrNotConnected) {
				sys.LogVoice(sys.MsgVoiceShutdownLeaveFail, id, err)
			}
		}(id)
	}
	wg.Wait()
}
