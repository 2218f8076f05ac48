package home

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

const (
	musicChoiceLimit  = 25
	musicChoiceLength = 100
)

func handleMusicPlay(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData, vm *proc.Manager) {
	query, _ := data.OptString("query")

	var voiceChannel discord.VoiceState
	var ok bool
	if event.Member() != nil {
		voiceChannel, ok = event.Client().Caches.VoiceState(*event.GuildID(), event.User().ID)
	}
	if !ok || voiceChannel.ChannelID == nil {
		musicRespond(event, sys.ErrVoiceNotInVoice, true)
		return
	}

	// Resolution may take several seconds.
	if err := event.DeferCreateMessage(false); err != nil {
		sys.LogVoice(sys.MsgVoiceRespondError, err)
		return
	}

	res, err := vm.Enqueue(sys.AppContext, proc.EnqueueRequest{
		GuildID:        *event.GuildID(),
		VoiceChannelID: *voiceChannel.ChannelID,
		TextChannelID:  event.Channel().ID(),
		UserID:         event.User().ID,
		Query:          query,
	})
	if err != nil {
		if errors.Is(err, proc.ErrResolution) {
			sys.LogVoice(sys.MsgVoiceResolveFailed, query, err)
		}
		musicFollowUp(event, musicErrorMessage(err))
		return
	}

	title := musicItemLink(res.Item)
	if res.Immediate {
		musicFollowUp(event, fmt.Sprintf(sys.MsgVoicePlayingNext, title))
		return
	}
	musicFollowUp(event, fmt.Sprintf(sys.MsgVoiceQueued, title, res.Position))
}

func handleMusicAutocomplete(event *events.AutocompleteInteractionCreate) {
	focused := event.Data.Focused()
	if focused.Name != "query" {
		return
	}
	query := strings.TrimSpace(focused.String())
	if query == "" || musicResolver == nil {
		_ = event.AutocompleteResult(nil)
		return
	}

	results, err := musicResolver.Search(context.Background(), query)
	if err != nil {
		_ = event.AutocompleteResult(nil)
		return
	}

	choices := make([]discord.AutocompleteChoice, 0, len(results))
	for i, r := range results {
		if i >= musicChoiceLimit {
			break
		}
		name := r.Title
		if r.Channel != "" {
			name += " - " + r.Channel
		}
		// Values longer than the choice limit fall back to the title.
		val := r.URL
		if len(val) > musicChoiceLength {
			val = musicTruncate(r.Title, musicChoiceLength)
		}
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  musicTruncate(name, musicChoiceLength),
			Value: val,
		})
	}
	_ = event.AutocompleteResult(choices)
}

// musicErrorMessage maps scheduler errors to user-facing text.
func musicErrorMessage(err error) string {
	switch {
	case errors.Is(err, proc.ErrNotInVoice):
		return sys.ErrVoiceNotInVoice
	case errors.Is(err, proc.ErrResolution):
		return sys.ErrVoiceResolveFailed
	case errors.Is(err, proc.ErrNothingPlaying):
		return sys.ErrVoiceNothingPlaying
	case errors.Is(err, proc.ErrIndexOutOfRange):
		return sys.ErrVoiceOutOfRange
	case errors.Is(err, proc.ErrNotConnected):
		return sys.ErrVoiceNotConnected
	default:
		return sys.ErrVoiceGeneric
	}
}

func musicItemLink(it *proc.Item) string {
	if it.URL == "" {
		return it.Title
	}
	return fmt.Sprintf("[%s](%s)", it.Title, it.URL)
}

func musicTruncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
