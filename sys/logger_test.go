package sys

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestBotLogHandler(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	logger := slog.New(NewBotLogHandler(&buf, &BotLogHandlerOptions{Level: slog.LevelInfo}))

	logger.Info("plain message")
	assert.Contains(t, buf.String(), "[INFO] plain message")

	buf.Reset()
	logger.Warn("joined", "component", "voice")
	assert.Contains(t, buf.String(), "[WARN]")
	assert.Contains(t, buf.String(), "[VOICE] joined")

	buf.Reset()
	logger.With("component", "database").Info("ready")
	assert.Contains(t, buf.String(), "[DATABASE] ready")
	assert.NotContains(t, buf.String(), "[INFO]")

	buf.Reset()
	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestBotLogHandler_Silent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewBotLogHandler(&buf, &BotLogHandlerOptions{Silent: true, Level: slog.LevelDebug}))
	logger.Error("nothing")
	assert.Empty(t, buf.String())
}

func TestStripANSIWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewStripANSIWriter(&buf)
	in := []byte("\x1b[35;1mpink\x1b[0m text")
	n, err := w.Write(in)
	assert.NoError(t, err)
	assert.Equal(t, len(in), n)
	assert.Equal(t, "pink text", buf.String())
}
