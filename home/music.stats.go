package home

import (
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func handleMusicStats(event *events.ApplicationCommandInteractionCreate, vm *proc.Manager) {
	stats, err := sys.GetHostStats()
	if err != nil {
		sys.LogWarn(sys.MsgVoiceStatsFailed, err)
	}
	musicRespond(event, fmt.Sprintf(sys.MsgVoiceStatsContent,
		vm.Registry().Sessions(),
		stats.Goroutines,
		stats.CPUPercent,
		stats.MemoryPercent,
	), true)
}
