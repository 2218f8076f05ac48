package home

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

const musicQueuePageSize = 15

func handleMusicQueue(event *events.ApplicationCommandInteractionCreate, vm *proc.Manager) {
	guildID := *event.GuildID()
	musicRespond(event, renderMusicQueue(vm.NowPlaying(guildID), vm.ListQueue(guildID)), true)
}

func renderMusicQueue(current *proc.Item, titles []string) string {
	if current == nil && len(titles) == 0 {
		return sys.MsgVoiceQueueEmpty
	}

	var sb strings.Builder
	if current != nil {
		sb.WriteString(fmt.Sprintf(sys.MsgVoiceQueueNow, musicItemLink(current)))
	}
	sb.WriteString(fmt.Sprintf(sys.MsgVoiceQueueHeader, len(titles)))
	for i, title := range titles {
		if i >= musicQueuePageSize {
			sb.WriteString(fmt.Sprintf(sys.MsgVoiceQueueMore, len(titles)-musicQueuePageSize))
			break
		}
		sb.WriteString(fmt.Sprintf(sys.MsgVoiceQueueItem, i+1, title))
	}
	return sb.String()
}
