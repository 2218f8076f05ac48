package home

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

const musicHistoryLimit = 10

func handleMusicHistory(event *events.ApplicationCommandInteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	plays, err := sys.GetRecentTrackPlays(ctx, *event.GuildID(), musicHistoryLimit)
	if err != nil {
		sys.LogDatabase(sys.MsgVoiceHistoryFailed, err)
		musicRespond(event, sys.ErrVoiceHistoryFailed, true)
		return
	}
	total, err := sys.GetTrackPlayCount(ctx, *event.GuildID())
	if err != nil {
		total = len(plays)
	}
	musicRespond(event, renderMusicHistory(plays, total), true)
}

func renderMusicHistory(plays []*sys.TrackPlay, total int) string {
	if len(plays) == 0 {
		return sys.MsgVoiceHistoryEmpty
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(sys.MsgVoiceHistoryHeader, total))
	for i, p := range plays {
		title := p.Title
		if p.URL != "" {
			title = fmt.Sprintf("[%s](%s)", p.Title, p.URL)
		}
		sb.WriteString(fmt.Sprintf(sys.MsgVoiceHistoryItem, i+1, title, p.PlayedAt.Unix()))
	}
	return sb.String()
}

// trackHistory persists started tracks to the database.
type trackHistory struct{}

func (trackHistory) RecordPlay(ctx context.Context, guildID snowflake.ID, it *proc.Item) error {
	return sys.AddTrackPlay(ctx, &sys.TrackPlay{
		GuildID:  guildID,
		UserID:   it.RequestedBy,
		URL:      it.URL,
		Title:    it.Title,
		Channel:  it.Channel,
		Duration: it.Duration,
	})
}
