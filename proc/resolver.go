package proc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/leeineian/jukebox/sys"
	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"golang.org/x/time/rate"
)

const (
	resolveTimeout    = 30 * time.Second
	searchTimeout     = 2600 * time.Millisecond
	searchSoftTimeout = 2300 * time.Millisecond
	maxSearchResults  = 25
	maxChoiceLength   = 100
)

// SearchResult is one autocomplete candidate.
type SearchResult struct {
	Title   string
	Channel string
	URL     string
}

// YTDLPResolver resolves URLs with yt-dlp and free-text queries through a
// YouTube Music search first, falling back to YouTube.
type YTDLPResolver struct {
	limiter       *rate.Limiter
	youtubePrefix string
	musicPrefix   string

	// extract and search are replaced in tests.
	extract func(ctx context.Context, target string) (*Item, error)
	search  func(ctx context.Context, query string) ([]SearchResult, error)
}

type ResolverOptions struct {
	// RatePerSecond caps yt-dlp invocations across all guilds.
	RatePerSecond float64
	YoutubePrefix string
	MusicPrefix   string
}

func NewYTDLPResolver(o ResolverOptions) *YTDLPResolver {
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 2
	}
	if o.YoutubePrefix == "" {
		o.YoutubePrefix = "[YT]"
	}
	if o.MusicPrefix == "" {
		o.MusicPrefix = "[YTM]"
	}
	r := &YTDLPResolver{
		limiter:       rate.NewLimiter(rate.Limit(o.RatePerSecond), int(o.RatePerSecond)+1),
		youtubePrefix: o.YoutubePrefix,
		musicPrefix:   o.MusicPrefix,
		extract:       ytdlpExtract,
	}
	r.search = r.searchAll
	return r
}

func (r *YTDLPResolver) Resolve(ctx context.Context, query string) (*Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrResolution)
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	target := query
	if !isURL(query) {
		results, err := r.search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResolution, err)
		}
		if len(results) == 0 {
			return nil, fmt.Errorf("%w: no results for %q", ErrResolution, query)
		}
		target = results[0].URL
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}

	it, err := r.extract(ctx, target)
	if err != nil {
		sys.LogVoice(sys.MsgVoiceResolveFailed, target, err)
		return nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}
	if it.URL == "" {
		it.URL = target
	}
	return it, nil
}

// Search returns autocomplete candidates. A leading source prefix picks
// which catalogue is listed first.
func (r *YTDLPResolver) Search(ctx context.Context, q string) ([]SearchResult, error) {
	return r.search(ctx, q)
}

func (r *YTDLPResolver) searchAll(ctx context.Context, q string) ([]SearchResult, error) {
	youtubeFirst, query := false, strings.TrimSpace(q)
	if hasPrefixFold(query, r.youtubePrefix) {
		youtubeFirst, query = true, strings.TrimSpace(query[len(r.youtubePrefix):])
	} else if hasPrefixFold(query, r.musicPrefix) {
		query = strings.TrimSpace(query[len(r.musicPrefix):])
	}
	if query == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		ytm, yt []SearchResult
		seen    = make(map[string]bool)
		wg      sync.WaitGroup
	)
	add := func(dst *[]SearchResult, id string, res SearchResult) {
		mu.Lock()
		defer mu.Unlock()
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		*dst = append(*dst, res)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := ytmusic.TrackSearch(query).Next()
		if err != nil || res == nil {
			return
		}
		for _, v := range res.Tracks {
			artist := ""
			if len(v.Artists) > 0 {
				artist = v.Artists[0].Name
			}
			add(&ytm, v.VideoID, SearchResult{
				Title:   truncate(v.Title, maxChoiceLength),
				Channel: artist,
				URL:     "https://music.youtube.com/watch?v=" + v.VideoID,
			})
		}
	}()
	go func() {
		defer wg.Done()
		res, err := ytsearch.NewClient(nil).Search(ctx, query)
		if err != nil {
			return
		}
		for _, v := range res.Results {
			add(&yt, v.VideoID, SearchResult{
				Title: truncate(v.Title, maxChoiceLength),
				URL:   "https://www.youtube.com/watch?v=" + v.VideoID,
			})
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(searchSoftTimeout):
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	var out []SearchResult
	if youtubeFirst {
		out = append(append(out, yt...), ytm...)
	} else {
		out = append(append(out, ytm...), yt...)
	}
	if len(out) > maxSearchResults {
		out = out[:maxSearchResults]
	}
	return out, nil
}

func ytdlpExtract(ctx context.Context, target string) (*Item, error) {
	res, err := ytdlp.New().
		Print("%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(webpage_url)s").
		Format("bestaudio[ext=webm]/bestaudio").
		NoPlaylist().
		NoCheckFormats().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", target)
	if err != nil {
		if res != nil && strings.Contains(strings.ToLower(res.Stderr), "drm") {
			return nil, fmt.Errorf("DRM: %w", err)
		}
		return nil, err
	}
	return parseExtract(res.Stdout)
}

// parseExtract reads the first tab separated line printed by ytdlpExtract.
func parseExtract(out string) (*Item, error) {
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		ps := strings.Split(l, "\t")
		if len(ps) < 5 || ps[0] == "" || ps[0] == "NA" {
			continue
		}
		d, _ := time.ParseDuration(ps[3] + "s")
		page := ps[4]
		if page == "NA" {
			page = ""
		}
		return &Item{StreamRef: ps[0], Title: ps[1], Channel: ps[2], Duration: d, URL: page}, nil
	}
	return nil, errors.New("failed to parse metadata")
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
