package proc

import "errors"

var (
	// ErrIndexOutOfRange is returned when a queue position is outside [1, len].
	ErrIndexOutOfRange = errors.New("queue position out of range")
	// ErrNothingPlaying is returned by Skip when no track is streaming.
	ErrNothingPlaying = errors.New("nothing is playing")
	// ErrAlreadyRunning guards against a second player for the same guild.
	ErrAlreadyRunning = errors.New("player already running for guild")
	// ErrResolution wraps every failure of the media resolver.
	ErrResolution = errors.New("could not resolve media")
	// ErrTransport wraps failures of the voice transport.
	ErrTransport = errors.New("voice transport failure")
	// ErrIdleTimeout is returned by Dequeue when the idle deadline elapses.
	ErrIdleTimeout = errors.New("idle timeout")
	// ErrNotConnected is returned for operations on a guild without a session.
	ErrNotConnected = errors.New("not connected to voice")
	// ErrNotInVoice is returned when the requesting user is not in a voice channel.
	ErrNotInVoice = errors.New("user not in a voice channel")
)
