package proc

import (
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

// session is the state of one guild. Lock order is Registry.mu before
// session.mu; nothing acquires Registry.mu while holding session.mu.
type session struct {
	guildID snowflake.ID
	queue   *Queue

	mu            sync.Mutex
	player        *Player
	retired       bool
	lastActivity  time.Time
	textChannelID snowflake.ID
}

func newSession(guildID snowflake.ID) *session {
	return &session{
		guildID:      guildID,
		queue:        NewQueue(),
		lastActivity: time.Now(),
	}
}

func (s *session) isRetired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retired
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *session) textChannel() snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textChannelID
}

// Registry owns every guild session. Sessions are created lazily on the
// first enqueue and destroyed on leave or idle retirement.
type Registry struct {
	mu       sync.Mutex
	sessions map[snowflake.ID]*session
	// draining holds players whose session was retired but whose goroutine
	// has not returned yet. A successor waits for them before connecting.
	draining map[snowflake.ID]*Player
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[snowflake.ID]*session),
		draining: make(map[snowflake.ID]*Player),
	}
}

// lookup returns the live session for guildID. With create set, a retired
// or missing session is replaced by a fresh one.
func (r *Registry) lookup(guildID snowflake.ID, create bool) *session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok && !s.isRetired() {
		return s
	}
	if !create {
		return nil
	}
	s := newSession(guildID)
	r.sessions[guildID] = s
	metricSessions.Inc()
	return s
}

func (r *Registry) predecessor(guildID snowflake.ID) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draining[guildID]
}

// GetOrCreateQueue returns the guild's queue, allocating a session if needed.
func (r *Registry) GetOrCreateQueue(guildID snowflake.ID) *Queue {
	return r.lookup(guildID, true).queue
}

// Queue returns the guild's queue without creating a session.
func (r *Registry) Queue(guildID snowflake.ID) *Queue {
	if s := r.lookup(guildID, false); s != nil {
		return s.queue
	}
	return nil
}

func (r *Registry) HasActiveLoop(guildID snowflake.ID) bool {
	return r.Player(guildID) != nil
}

// Player returns the running player of the guild, or nil.
func (r *Registry) Player(guildID snowflake.ID) *Player {
	s := r.lookup(guildID, false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// LastActivity reports when a track last started or ended in the guild.
func (r *Registry) LastActivity(guildID snowflake.ID) (time.Time, bool) {
	s := r.lookup(guildID, false)
	if s == nil {
		return time.Time{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity, true
}

// RegisterLoop records p as the guild's player. It fails with
// ErrAlreadyRunning when another player is registered.
func (r *Registry) RegisterLoop(guildID snowflake.ID, p *Player) error {
	for {
		s := r.lookup(guildID, true)
		s.mu.Lock()
		if s.retired {
			s.mu.Unlock()
			continue
		}
		if s.player != nil {
			s.mu.Unlock()
			sys.LogError(sys.MsgVoiceAlreadyRunning, guildID)
			return ErrAlreadyRunning
		}
		s.player = p
		p.sess = s
		s.mu.Unlock()
		return nil
	}
}

// enqueueResult describes where an item landed.
type enqueueResult struct {
	position  int
	immediate bool
	started   *Player
}

// Enqueue appends it to the guild's queue and, in the same critical
// section, creates a player through spawn when none is registered. The
// caller must start the returned player.
func (r *Registry) Enqueue(guildID, textChannelID snowflake.ID, it *Item, spawn func(prev *Player) *Player) enqueueResult {
	for {
		s := r.lookup(guildID, true)
		prev := r.predecessor(guildID)

		s.mu.Lock()
		if s.retired {
			s.mu.Unlock()
			continue
		}
		if textChannelID != 0 {
			s.textChannelID = textChannelID
		}
		res := enqueueResult{position: s.queue.Enqueue(it)}
		res.immediate = res.position == 1 && (s.player == nil || s.player.State() != StatePlaying)
		if s.player == nil && spawn != nil {
			p := spawn(prev)
			p.sess = s
			s.player = p
			res.started = p
		}
		s.mu.Unlock()
		return res
	}
}

// retire marks s retired, drops its state and cancels its player. It
// returns false when s was already retired.
func (r *Registry) retire(s *session) bool {
	r.mu.Lock()
	s.mu.Lock()
	if s.retired {
		s.mu.Unlock()
		r.mu.Unlock()
		return false
	}
	s.retired = true
	p := s.player
	s.player = nil
	s.queue.Clear()
	s.mu.Unlock()

	r.detach(s, p)
	r.mu.Unlock()

	if p != nil {
		p.cancel()
	}
	return true
}

type idleOutcome int

const (
	// idleRetired means the session was retired for inactivity.
	idleRetired idleOutcome = iota
	// idleBusy means an item arrived and the player must keep looping.
	idleBusy
	// idleSuperseded means the session was already retired elsewhere.
	idleSuperseded
)

// retireIdle retires p's session if p is still its player and the queue is
// empty.
func (r *Registry) retireIdle(p *Player) idleOutcome {
	s := p.sess
	r.mu.Lock()
	defer r.mu.Unlock()

	s.mu.Lock()
	if s.retired || s.player != p {
		s.mu.Unlock()
		return idleSuperseded
	}
	// Enqueue appends under s.mu, so an empty queue here stays empty
	// until the session is marked retired.
	if s.queue.Len() > 0 {
		s.mu.Unlock()
		return idleBusy
	}
	s.retired = true
	s.player = nil
	s.mu.Unlock()

	r.detach(s, p)
	return idleRetired
}

// detach removes a retired session from the map and parks its player in
// the draining set. r.mu must be held.
func (r *Registry) detach(s *session, p *Player) {
	if r.sessions[s.guildID] == s {
		delete(r.sessions, s.guildID)
	}
	if p != nil {
		r.draining[s.guildID] = p
	}
	metricSessions.Dec()
}

// forget drops p from the draining set once its goroutine has returned.
func (r *Registry) forget(p *Player) {
	r.mu.Lock()
	if r.draining[p.guildID] == p {
		delete(r.draining, p.guildID)
	}
	r.mu.Unlock()
}

// Retire removes the guild's queue, player handle and activity timestamp.
// Retiring an absent guild is a no-op.
func (r *Registry) Retire(guildID snowflake.ID) {
	if s := r.lookup(guildID, false); s != nil {
		r.retire(s)
	}
}

// RequestLeave retires the guild and stops its player immediately. It
// reports whether a session existed.
func (r *Registry) RequestLeave(guildID snowflake.ID) bool {
	s := r.lookup(guildID, false)
	if s == nil {
		return false
	}
	s.mu.Lock()
	p := s.player
	s.mu.Unlock()

	// Retire first so the player cannot pick up a pending item once the
	// current track is stopped.
	retired := r.retire(s)
	if p != nil {
		p.transport.Stop()
	}
	return retired
}

// Guilds returns the ids of every live session.
func (r *Registry) Guilds() []snowflake.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]snowflake.ID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
