package home

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicRemove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData, vm *proc.Manager) {
	pos, _ := data.OptInt("position")
	it, err := vm.RemoveAt(*event.GuildID(), pos)
	if err != nil {
		musicRespond(event, musicErrorMessage(err), true)
		return
	}
	musicRespond(event, fmt.Sprintf(sys.MsgVoiceRemoved, it.Title, pos), false)
}
