package home

import (
	"context"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// musicResolver is shared by /music play and its autocomplete.
var musicResolver *proc.YTDLPResolver

func init() {
	sys.OnClientReady(func(ctx context.Context, client *bot.Client) {
		cfg := sys.GlobalConfig
		if cfg == nil {
			cfg = &sys.Config{IdleTimeout: sys.DefaultIdleTimeout, ResolveRate: sys.DefaultResolveRate}
		}

		musicResolver = proc.NewYTDLPResolver(proc.ResolverOptions{
			RatePerSecond: cfg.ResolveRate,
			YoutubePrefix: cfg.YoutubePrefix,
			MusicPrefix:   cfg.YTMusicPrefix,
		})
		vm := proc.NewManager(
			musicResolver,
			proc.VoiceTransportFactory(client),
			&channelNotifier{client: client},
			trackHistory{},
			proc.Config{IdleTimeout: cfg.IdleTimeout},
		)
		proc.SetVoiceManager(vm)

		rotator := proc.NewPresenceRotator(client, vm)
		sys.RegisterDaemon(sys.LogVoice, func(ctx context.Context) (bool, func(), func()) {
			return true, func() { rotator.Run(ctx) }, func() {}
		})
		sys.RegisterDaemon(sys.LogVoice, func(ctx context.Context) (bool, func(), func()) {
			return true, func() {}, func() {
				sys.LogVoice(sys.MsgVoiceShuttingDown)
				vm.Shutdown(context.Background())
			}
		})
		sys.RegisterVoiceStateUpdateHandler(onMusicVoiceStateUpdate)
	})

	djPerm := discord.PermissionConnect
	minPosition := 1
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "music",
		Description:              "Play audio in your voice channel",
		DefaultMemberPermissions: omit.New(&djPerm),
		Contexts:                 []discord.InteractionContextType{discord.InteractionContextTypeGuild},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "play",
				Description: "Queue a URL or search query",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:         "query",
						Description:  "The URL or song name to play",
						Required:     true,
						Autocomplete: true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "skip",
				Description: "Skip the current track",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "queue",
				Description: "Show the current queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove a pending item from the queue",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionInt{
						Name:        "position",
						Description: "Queue position, starting at 1",
						Required:    true,
						MinValue:    &minPosition,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "clear",
				Description: "Remove every pending item from the queue",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "leave",
				Description: "Stop playback and leave the voice channel",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "history",
				Description: "Show recently played tracks",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "stats",
				Description: "Show voice system status",
			},
		},
	}, handleMusic)

	sys.RegisterAutocompleteHandler("music", handleMusicAutocomplete)
}

// handleMusic routes music subcommands to their handlers
func handleMusic(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}
	if event.GuildID() == nil {
		musicRespond(event, sys.ErrVoiceGuildOnly, true)
		return
	}
	vm := proc.GetVoiceManager()
	if vm == nil {
		musicRespond(event, sys.ErrVoiceNotReady, true)
		return
	}

	switch *data.SubCommandName {
	case "play":
		handleMusicPlay(event, data, vm)
	case "skip":
		handleMusicSkip(event, vm)
	case "queue":
		handleMusicQueue(event, vm)
	case "remove":
		handleMusicRemove(event, data, vm)
	case "clear":
		handleMusicClear(event, vm)
	case "leave":
		handleMusicLeave(event, vm)
	case "history":
		handleMusicHistory(event)
	case "stats":
		handleMusicStats(event, vm)
	}
}

func musicRespond(event *events.ApplicationCommandInteractionCreate, content string, ephemeral bool) {
	err := event.CreateMessage(discord.NewMessageCreate().
		WithIsComponentsV2(true).
		AddComponents(
			discord.NewContainer(
				discord.NewTextDisplay(content),
			),
		).
		WithEphemeral(ephemeral))
	if err != nil {
		sys.LogVoice(sys.MsgVoiceRespondError, err)
	}
}

// musicFollowUp replaces a deferred response.
func musicFollowUp(event *events.ApplicationCommandInteractionCreate, content string) {
	_, err := event.Client().Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(),
		discord.NewMessageUpdate().
			WithIsComponentsV2(true).
			AddComponents(
				discord.NewContainer(
					discord.NewTextDisplay(content),
				),
			))
	if err != nil {
		sys.LogVoice(sys.MsgVoiceRespondError, err)
	}
}
