package proc

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

// Transport is the voice connection a player streams into.
type Transport interface {
	Connect(ctx context.Context, channelID snowflake.ID) error
	IsConnected() bool
	IsPlaying() bool
	// Play starts streaming it and returns a channel that receives exactly
	// one value when the track ends: nil on natural completion or Stop.
	Play(ctx context.Context, it *Item) (<-chan error, error)
	Stop()
	Disconnect(ctx context.Context) error
}

// Resolver turns a user query into a playable item.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Item, error)
}

type EventKind int

const (
	EventNowPlaying EventKind = iota + 1
	EventTrackFailed
	EventIdleTimeout
	EventConnectFailed
)

func (k EventKind) String() string {
	switch k {
	case EventNowPlaying:
		return "now_playing"
	case EventTrackFailed:
		return "track_failed"
	case EventIdleTimeout:
		return "idle_timeout"
	case EventConnectFailed:
		return "connect_failed"
	}
	return "unknown"
}

// Event is a user-facing notification emitted by a player.
type Event struct {
	Kind          EventKind
	GuildID       snowflake.ID
	TextChannelID snowflake.ID
	Item          *Item
	Err           error
}

// Notifier delivers events. Implementations must not block for long.
type Notifier interface {
	Notify(ev Event)
}

// History records tracks once they start playing.
type History interface {
	RecordPlay(ctx context.Context, guildID snowflake.ID, it *Item) error
}

type State int32

const (
	StateWaiting State = iota + 1
	StatePlaying
	StateRetiring
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StatePlaying:
		return "playing"
	case StateRetiring:
		return "retiring"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

const (
	stopGrace       = 2 * time.Second
	disconnectGrace = 5 * time.Second
	historyTimeout  = 5 * time.Second
)

// Player drains one guild's queue into its transport until it is asked to
// leave or the queue stays empty for the idle timeout.
type Player struct {
	guildID   snowflake.ID
	channelID snowflake.ID
	timeout   time.Duration

	registry  *Registry
	sess      *session
	prev      *Player
	transport Transport
	notifier  Notifier
	history   History

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	state   atomic.Int32
	current atomic.Pointer[Item]
}

type playerOptions struct {
	guildID   snowflake.ID
	channelID snowflake.ID
	timeout   time.Duration
	registry  *Registry
	prev      *Player
	transport Transport
	notifier  Notifier
	history   History
}

func newPlayer(o playerOptions) *Player {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		guildID:   o.guildID,
		channelID: o.channelID,
		timeout:   o.timeout,
		registry:  o.registry,
		prev:      o.prev,
		transport: o.transport,
		notifier:  o.notifier,
		history:   o.history,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	p.state.Store(int32(StateWaiting))
	return p
}

func (p *Player) start() {
	go p.run()
}

// Done is closed once the player has disconnected and returned.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

func (p *Player) State() State {
	return State(p.state.Load())
}

// Current returns the item being streamed, or nil.
func (p *Player) Current() *Item {
	return p.current.Load()
}

// Skip stops the current track. The loop moves on to the next item.
func (p *Player) Skip() (*Item, error) {
	it := p.current.Load()
	if p.State() != StatePlaying || it == nil {
		return nil, ErrNothingPlaying
	}
	p.transport.Stop()
	metricSkips.Inc()
	return it, nil
}

func (p *Player) setState(s State) {
	p.state.Store(int32(s))
}

func (p *Player) notify(kind EventKind, it *Item, err error) {
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(Event{
		Kind:          kind,
		GuildID:       p.guildID,
		TextChannelID: p.sess.textChannel(),
		Item:          it,
		Err:           err,
	})
}

func (p *Player) run() {
	defer func() {
		if r := recover(); r != nil {
			sys.LogError(sys.MsgLoaderPanicRecovered, r)
			p.registry.retire(p.sess)
			p.teardown()
		}
		p.setState(StateStopped)
		p.registry.forget(p)
		close(p.done)
	}()

	if p.prev != nil {
		select {
		case <-p.prev.Done():
		case <-p.ctx.Done():
			return
		}
	}

	if p.ctx.Err() != nil {
		return
	}
	if err := p.transport.Connect(p.ctx, p.channelID); err != nil {
		p.setState(StateRetiring)
		if p.ctx.Err() == nil {
			sys.LogVoice(sys.MsgVoiceConnectFailed, p.guildID, err)
			p.notify(EventConnectFailed, nil, err)
			metricRetirements.WithLabelValues("connect_failed").Inc()
		}
		p.registry.retire(p.sess)
		p.teardown()
		return
	}
	sys.LogVoice(sys.MsgVoiceConnected, p.channelID, p.guildID)

	for {
		p.setState(StateWaiting)
		it, err := p.sess.queue.Dequeue(p.ctx, p.timeout)
		switch {
		case err == nil:
			p.play(it)
		case errors.Is(err, ErrIdleTimeout):
			switch p.registry.retireIdle(p) {
			case idleBusy:
				continue
			case idleSuperseded:
				p.setState(StateRetiring)
				p.teardown()
				metricRetirements.WithLabelValues("leave").Inc()
				return
			}
			p.setState(StateRetiring)
			sys.LogVoice(sys.MsgVoiceIdleRetire, p.guildID, p.timeout)
			p.teardown()
			p.notify(EventIdleTimeout, nil, nil)
			metricRetirements.WithLabelValues("idle").Inc()
			return
		default:
			p.setState(StateRetiring)
			sys.LogVoice(sys.MsgVoiceLeaving, p.guildID)
			p.teardown()
			metricRetirements.WithLabelValues("leave").Inc()
			return
		}
	}
}

func (p *Player) play(it *Item) {
	p.current.Store(it)
	p.setState(StatePlaying)
	p.sess.touch()
	defer func() {
		p.current.Store(nil)
		p.sess.touch()
	}()

	finished, err := p.transport.Play(p.ctx, it)
	if err != nil {
		p.trackFailed(it, err)
		return
	}

	sys.LogVoice(sys.MsgVoiceNowPlaying, it.Title, p.guildID)
	metricTracksStarted.Inc()
	p.notify(EventNowPlaying, it, nil)
	p.recordHistory(it)

	select {
	case err := <-finished:
		if err != nil {
			p.trackFailed(it, err)
		}
	case <-p.ctx.Done():
		p.transport.Stop()
		select {
		case <-finished:
		case <-time.After(stopGrace):
			sys.LogWarn(sys.MsgVoiceStopTimeout, p.guildID)
		}
	}
}

func (p *Player) trackFailed(it *Item, err error) {
	if p.ctx.Err() != nil {
		return
	}
	sys.LogVoice(sys.MsgVoiceTrackFailed, it.Title, p.guildID, err)
	metricTracksFailed.Inc()
	p.notify(EventTrackFailed, it, err)
}

func (p *Player) recordHistory(it *Item) {
	if p.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := p.history.RecordPlay(ctx, p.guildID, it); err != nil {
		sys.LogDatabase(sys.MsgVoiceHistoryFailed, err)
	}
}

func (p *Player) teardown() {
	p.transport.Stop()
	p.current.Store(nil)
	ctx, cancel := context.WithTimeout(context.Background(), disconnectGrace)
	defer cancel()
	if err := p.transport.Disconnect(ctx); err != nil {
		sys.LogVoice(sys.MsgVoiceDisconnectFailed, p.guildID, err)
	}
}
