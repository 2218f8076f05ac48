package proc

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/leeineian/jukebox/sys"
)

const defaultPresence = "/music play"

func presenceInterval() time.Duration {
	return time.Duration(15+rand.Intn(46)) * time.Second
}

type presenceSource func(ctx context.Context, m *Manager) string

// PresenceRotator cycles the bot's listening activity through live
// playback stats.
type PresenceRotator struct {
	client  *bot.Client
	manager *Manager
	sources []presenceSource
	last    string
}

func NewPresenceRotator(client *bot.Client, m *Manager) *PresenceRotator {
	return &PresenceRotator{
		client:  client,
		manager: m,
		sources: []presenceSource{sessionsPresence, playsPresence, uptimePresence},
	}
}

// Run updates the presence until ctx is done.
func (r *PresenceRotator) Run(ctx context.Context) {
	for {
		next := presenceInterval()
		r.update(ctx, next)
		select {
		case <-time.After(next):
		case <-ctx.Done():
			return
		}
	}
}

func (r *PresenceRotator) update(ctx context.Context, next time.Duration) {
	text := r.pick(ctx)
	err := r.client.SetPresence(ctx,
		gateway.WithOnlineStatus(discord.OnlineStatusOnline),
		gateway.WithListeningActivity(text),
	)
	if err != nil {
		sys.LogVoice(sys.MsgVoicePresenceFailed, err)
		return
	}
	sys.LogVoice(sys.MsgVoicePresenceRotated, text, next)
}

// pick returns a non-empty status, avoiding the one shown last when
// another is available.
func (r *PresenceRotator) pick(ctx context.Context) string {
	var choices []string
	for _, src := range r.sources {
		if text := src(ctx, r.manager); text != "" && text != r.last {
			choices = append(choices, text)
		}
	}
	text := defaultPresence
	if len(choices) > 0 {
		text = choices[rand.Intn(len(choices))]
	}
	r.last = text
	return text
}

func sessionsPresence(_ context.Context, m *Manager) string {
	n := m.Registry().Sessions()
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("music in %d server(s)", n)
}

func playsPresence(ctx context.Context, _ *Manager) string {
	if sys.DB == nil {
		return ""
	}
	n, err := sys.GetTotalTrackPlays(ctx)
	if err != nil || n == 0 {
		return ""
	}
	return fmt.Sprintf("%d tracks played", n)
}

func uptimePresence(context.Context, *Manager) string {
	uptime := time.Since(sys.StartupTime)
	return fmt.Sprintf("for %dh %dm", int(uptime.Hours()), int(uptime.Minutes())%60)
}
