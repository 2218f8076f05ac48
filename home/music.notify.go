package home

import (
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// channelNotifier posts player events to the text channel the guild's
// last request came from.
type channelNotifier struct {
	client *bot.Client
}

func (n *channelNotifier) Notify(ev proc.Event) {
	if ev.TextChannelID == 0 {
		return
	}
	content := musicEventMessage(ev)
	if content == "" {
		return
	}
	sys.SafeGo(func() {
		_, err := n.client.Rest.CreateMessage(ev.TextChannelID, discord.NewMessageCreate().
			WithIsComponentsV2(true).
			AddComponents(
				discord.NewContainer(
					discord.NewTextDisplay(content),
				),
			))
		if err != nil {
			sys.LogVoice(sys.MsgVoiceNotifyFailed, ev.TextChannelID, err)
		}
	})
}

func musicEventMessage(ev proc.Event) string {
	switch ev.Kind {
	case proc.EventNowPlaying:
		if ev.Item == nil {
			return ""
		}
		return fmt.Sprintf(sys.MsgVoiceNotifyNowPlaying, musicItemLink(ev.Item))
	case proc.EventTrackFailed:
		if ev.Item == nil {
			return ""
		}
		return fmt.Sprintf(sys.MsgVoiceNotifyTrackFailed, ev.Item.Title)
	case proc.EventIdleTimeout:
		return sys.MsgVoiceNotifyIdle
	case proc.EventConnectFailed:
		return sys.MsgVoiceNotifyConnectFailed
	}
	return ""
}
