package home

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/stretchr/testify/assert"
)

func TestMusicErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{proc.ErrNotInVoice, sys.ErrVoiceNotInVoice},
		{fmt.Errorf("%w: no results", proc.ErrResolution), sys.ErrVoiceResolveFailed},
		{proc.ErrNothingPlaying, sys.ErrVoiceNothingPlaying},
		{proc.ErrIndexOutOfRange, sys.ErrVoiceOutOfRange},
		{proc.ErrNotConnected, sys.ErrVoiceNotConnected},
		{fmt.Errorf("boom"), sys.ErrVoiceGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, musicErrorMessage(tt.err), tt.err.Error())
	}
}

func TestRenderMusicQueue(t *testing.T) {
	assert.Equal(t, sys.MsgVoiceQueueEmpty, renderMusicQueue(nil, nil))

	current := &proc.Item{Title: "Now", URL: "https://example.com/now"}
	out := renderMusicQueue(current, []string{"a", "b"})
	assert.Contains(t, out, "[Now](https://example.com/now)")
	assert.Contains(t, out, "1. a\n")
	assert.Contains(t, out, "2. b\n")

	long := make([]string, musicQueuePageSize+5)
	for i := range long {
		long[i] = fmt.Sprintf("t%d", i)
	}
	out = renderMusicQueue(nil, long)
	assert.Contains(t, out, fmt.Sprintf(sys.MsgVoiceQueueMore, 5))
	assert.NotContains(t, out, fmt.Sprintf("%d. ", musicQueuePageSize+1))
}

func TestRenderMusicHistory(t *testing.T) {
	assert.Equal(t, sys.MsgVoiceHistoryEmpty, renderMusicHistory(nil, 0))

	at := time.Unix(1700000000, 0)
	out := renderMusicHistory([]*sys.TrackPlay{
		{Title: "Song", URL: "https://example.com/song", PlayedAt: at},
		{Title: "Bare", PlayedAt: at},
	}, 7)
	assert.True(t, strings.HasPrefix(out, fmt.Sprintf(sys.MsgVoiceHistoryHeader, 7)))
	assert.Contains(t, out, "1. [Song](https://example.com/song) <t:1700000000:R>")
	assert.Contains(t, out, "2. Bare <t:1700000000:R>")
}

func TestMusicEventMessage(t *testing.T) {
	it := &proc.Item{Title: "Song"}
	assert.Equal(t, fmt.Sprintf(sys.MsgVoiceNotifyNowPlaying, "Song"), musicEventMessage(proc.Event{Kind: proc.EventNowPlaying, Item: it}))
	assert.Equal(t, fmt.Sprintf(sys.MsgVoiceNotifyTrackFailed, "Song"), musicEventMessage(proc.Event{Kind: proc.EventTrackFailed, Item: it}))
	assert.Equal(t, sys.MsgVoiceNotifyIdle, musicEventMessage(proc.Event{Kind: proc.EventIdleTimeout}))
	assert.Equal(t, sys.MsgVoiceNotifyConnectFailed, musicEventMessage(proc.Event{Kind: proc.EventConnectFailed}))
	assert.Empty(t, musicEventMessage(proc.Event{Kind: proc.EventNowPlaying}))
}

func TestMusicTruncate(t *testing.T) {
	assert.Equal(t, "abc", musicTruncate("abc", 5))
	assert.Equal(t, "ab...", musicTruncate("abcdefgh", 5))
}
