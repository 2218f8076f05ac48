package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

const (
	frameBuffer  = 100
	silenceAfter = 100 * time.Millisecond
)

// frameProvider feeds Opus frames from a transcoder into a voice
// connection. A nil frame marks the end of the track.
type frameProvider struct {
	ctx      context.Context
	frames   chan []byte
	finished chan struct{}
	once     sync.Once
}

func newFrameProvider(ctx context.Context) *frameProvider {
	return &frameProvider{
		ctx:      ctx,
		frames:   make(chan []byte, frameBuffer),
		finished: make(chan struct{}),
	}
}

func (p *frameProvider) finish() {
	p.once.Do(func() { close(p.finished) })
}

func (p *frameProvider) push(f []byte) {
	select {
	case p.frames <- f:
	case <-p.ctx.Done():
	}
}

func (p *frameProvider) ProvideOpusFrame() ([]byte, error) {
	select {
	case f := <-p.frames:
		if f == nil {
			p.finish()
			return nil, io.EOF
		}
		return f, nil
	case <-p.ctx.Done():
		p.finish()
		return nil, io.EOF
	case <-time.After(silenceAfter):
		return nil, nil
	}
}

func (p *frameProvider) Close() {
	p.finish()
}

// VoiceTransport streams items into a disgo voice connection.
type VoiceTransport struct {
	client  *bot.Client
	guildID snowflake.ID

	mu        sync.Mutex
	conn      voice.Conn
	stop      context.CancelFunc
	playing   atomic.Bool
	connected atomic.Bool
}

func NewVoiceTransport(client *bot.Client, guildID snowflake.ID) *VoiceTransport {
	return &VoiceTransport{client: client, guildID: guildID}
}

// VoiceTransportFactory returns a TransportFactory bound to client.
func VoiceTransportFactory(client *bot.Client) TransportFactory {
	return func(guildID snowflake.ID) Transport {
		return NewVoiceTransport(client, guildID)
	}
}

func (v *VoiceTransport) Connect(ctx context.Context, channelID snowflake.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	conn := v.client.VoiceManager.CreateConn(v.guildID)
	if err := conn.Open(ctx, channelID, false, false); err != nil {
		conn.Close(context.Background())
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	v.conn = conn
	v.connected.Store(true)
	return nil
}

func (v *VoiceTransport) IsConnected() bool {
	return v.connected.Load()
}

func (v *VoiceTransport) IsPlaying() bool {
	return v.playing.Load()
}

func (v *VoiceTransport) Play(ctx context.Context, it *Item) (<-chan error, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn == nil {
		return nil, ErrNotConnected
	}
	if v.stop != nil {
		v.stop()
	}

	streamCtx, cancel := context.WithCancel(ctx)
	v.stop = cancel
	provider := newFrameProvider(streamCtx)
	finished := make(chan error, 1)

	tr := newOpusTranscoder()
	if err := tr.Open(it.StreamRef); err != nil {
		tr.Close()
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	v.setProvider(provider)
	if err := v.conn.SetSpeaking(streamCtx, voice.SpeakingFlagMicrophone); err != nil {
		sys.LogVoice(sys.MsgVoiceSpeakingFailed, v.guildID, err)
	}
	v.playing.Store(true)

	go func() {
		defer cancel()
		err := tr.Transcode(streamCtx, provider.push)
		select {
		case <-provider.finished:
		case <-streamCtx.Done():
		}
		tr.Close()
		v.playing.Store(false)

		v.mu.Lock()
		if v.conn != nil {
			_ = v.conn.SetSpeaking(context.Background(), 0)
		}
		v.mu.Unlock()

		if errors.Is(err, context.Canceled) || streamCtx.Err() != nil {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrTransport, err)
		}
		finished <- err
	}()
	return finished, nil
}

func (v *VoiceTransport) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stop != nil {
		v.stop()
		v.stop = nil
	}
}

func (v *VoiceTransport) Disconnect(ctx context.Context) error {
	v.Stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn == nil {
		return nil
	}
	v.setProvider(nil)
	v.conn.Close(ctx)
	v.conn = nil
	v.connected.Store(false)
	return nil
}

// setProvider swaps the frame provider, recovering from panics inside the
// voice library's audio sender.
func (v *VoiceTransport) setProvider(provider voice.OpusFrameProvider) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogVoice(sys.MsgVoiceProviderPanic, r)
		}
	}()
	v.conn.SetOpusFrameProvider(provider)
}
