package home

import (
	"context"
	"errors"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicLeave(event *events.ApplicationCommandInteractionCreate, vm *proc.Manager) {
	guildID := *event.GuildID()
	if err := event.DeferCreateMessage(false); err != nil {
		sys.LogVoice(sys.MsgVoiceRespondError, err)
		return
	}

	sys.LogVoice(sys.MsgVoiceLeaving, guildID)
	if err := vm.Leave(sys.AppContext, guildID); err != nil {
		musicFollowUp(event, musicErrorMessage(err))
		return
	}
	musicFollowUp(event, sys.MsgVoiceLeft)
}

// onMusicVoiceStateUpdate retires the guild's session when the bot is
// removed from voice by someone else.
func onMusicVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	if event.VoiceState.UserID != event.Client().ID() || event.VoiceState.ChannelID != nil {
		return
	}
	vm := proc.GetVoiceManager()
	if vm == nil {
		return
	}
	guildID := event.VoiceState.GuildID
	// A player still connecting has no live connection and is left alone.
	if !vm.IsConnected(guildID) {
		return
	}

	sys.LogVoice(sys.MsgVoiceExternalLeave, guildID)
	sys.SafeGo(func() {
		if err := vm.Leave(context.Background(), guildID); err != nil && !errors.Is(err, proc.ErrNotConnected) {
			sys.LogVoice(sys.MsgVoiceDisconnectFailed, guildID, err)
		}
	})
}
