package home

import (
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicSkip(event *events.ApplicationCommandInteractionCreate, vm *proc.Manager) {
	it, err := vm.Skip(*event.GuildID())
	if err != nil {
		musicRespond(event, musicErrorMessage(err), true)
		return
	}
	musicRespond(event, fmt.Sprintf(sys.MsgVoiceSkipped, it.Title), false)
}
