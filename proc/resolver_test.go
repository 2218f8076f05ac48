package proc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*YTDLPResolver, *[]string) {
	t.Helper()
	var extracted []string
	r := NewYTDLPResolver(ResolverOptions{RatePerSecond: 100})
	r.extract = func(ctx context.Context, target string) (*Item, error) {
		extracted = append(extracted, target)
		if target == "https://example.com/broken" {
			return nil, errors.New("DRM: protected")
		}
		return &Item{StreamRef: "stream://" + target, Title: "resolved"}, nil
	}
	r.search = func(ctx context.Context, q string) ([]SearchResult, error) {
		switch q {
		case "nothing":
			return nil, nil
		case "offline":
			return nil, errors.New("search unavailable")
		}
		return []SearchResult{
			{Title: q + " (official)", URL: "https://music.youtube.com/watch?v=first"},
			{Title: q + " (cover)", URL: "https://www.youtube.com/watch?v=second"},
		}, nil
	}
	return r, &extracted
}

func TestYTDLPResolver_ResolveURL(t *testing.T) {
	r, extracted := newTestResolver(t)

	it, err := r.Resolve(context.Background(), "  https://example.com/song  ")
	require.NoError(t, err)
	assert.Equal(t, "stream://https://example.com/song", it.StreamRef)
	assert.Equal(t, "https://example.com/song", it.URL, "page url falls back to the query")
	assert.Equal(t, []string{"https://example.com/song"}, *extracted)
}

func TestYTDLPResolver_ResolveSearchUsesFirstResult(t *testing.T) {
	r, extracted := newTestResolver(t)

	it, err := r.Resolve(context.Background(), "never gonna give you up")
	require.NoError(t, err)
	assert.Equal(t, "resolved", it.Title)
	assert.Equal(t, []string{"https://music.youtube.com/watch?v=first"}, *extracted)
}

func TestYTDLPResolver_ResolveErrors(t *testing.T) {
	r, _ := newTestResolver(t)

	for _, q := range []string{"", "   ", "nothing", "offline", "https://example.com/broken"} {
		_, err := r.Resolve(context.Background(), q)
		assert.ErrorIs(t, err, ErrResolution, "query %q", q)
	}
}

func TestYTDLPResolver_ResolveCancelled(t *testing.T) {
	r, _ := newTestResolver(t)
	r.limiter.SetLimit(0.001)
	r.limiter.SetBurst(0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Resolve(ctx, "https://example.com/song")
	assert.ErrorIs(t, err, ErrResolution)
}

func TestNewYTDLPResolver_Defaults(t *testing.T) {
	r := NewYTDLPResolver(ResolverOptions{})
	assert.Equal(t, "[YT]", r.youtubePrefix)
	assert.Equal(t, "[YTM]", r.musicPrefix)
	assert.NotNil(t, r.limiter)
}

func TestParseExtract(t *testing.T) {
	it, err := parseExtract("https://cdn/audio\tSong\tArtist\t215\thttps://youtube.com/watch?v=x\n")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/audio", it.StreamRef)
	assert.Equal(t, "Song", it.Title)
	assert.Equal(t, "Artist", it.Channel)
	assert.Equal(t, 215*time.Second, it.Duration)
	assert.Equal(t, "https://youtube.com/watch?v=x", it.URL)

	it, err = parseExtract("NA\tskip\tme\t1\tNA\nhttps://cdn/b\tB\tNA\tNA\tNA")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/b", it.StreamRef)
	assert.Zero(t, it.Duration)
	assert.Empty(t, it.URL)

	for _, out := range []string{"", "garbage", "a\tb\tc"} {
		_, err := parseExtract(out)
		assert.Error(t, err, "output %q", out)
	}
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("https://youtube.com/watch?v=x"))
	assert.True(t, isURL("http://example.com"))
	assert.False(t, isURL("rick astley"))
	assert.False(t, isURL("ftp://example.com/file"))
	assert.False(t, isURL("https://"))
}

func TestHasPrefixFold(t *testing.T) {
	assert.True(t, hasPrefixFold("[ytm] song", "[YTM]"))
	assert.False(t, hasPrefixFold("[Y", "[YTM]"))
	assert.False(t, hasPrefixFold("song", "[YT]"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6), "counts runes, not bytes")
}
