package home

import (
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicClear(event *events.ApplicationCommandInteractionCreate, vm *proc.Manager) {
	n := vm.Clear(*event.GuildID())
	musicRespond(event, fmt.Sprintf(sys.MsgVoiceCleared, n), false)
}
