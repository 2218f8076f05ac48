package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// --- Globals & Styles ---

var (
	// Level colors
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)

	// Component colors
	databaseColor = color.New()
	voiceColor    = color.New(color.FgMagenta)
	loaderColor   = color.New(color.FgBlue)
	metricsColor  = color.New(color.FgGreen)

	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	LogToFile         = false
	Logger            *slog.Logger

	logFile *os.File
	logMu   sync.Mutex
)

const LevelFatal = slog.LevelError + 4

func init() {
	InitLogger(false, false)
}

// InitLogger initializes the global structured logger
func InitLogger(silent bool, saveToFile bool) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	LogToFile = saveToFile
	level := slog.LevelInfo
	if strings.ToLower(os.Getenv("DEBUG")) == "true" {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writer io.Writer = os.Stdout
	if LogToFile {
		logName := GetProjectName() + ".log"
		if exePath, err := os.Executable(); err == nil {
			logName = filepath.Base(exePath) + ".log"
		}

		f, err := os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", logName, err)
		} else {
			logFile = f
			writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logFile))
		}
	}

	Logger = slog.New(NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
	}))
	slog.SetDefault(Logger)
}

func SetSilentMode(silent bool) {
	InitLogger(silent, LogToFile)
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

// LogFatal logs and panics so that deferred cleanup in main still runs.
func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), LevelFatal, msg)
	panic(msg)
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogVoice(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "voice"))
}

func LogLoader(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "loader"))
}

func LogMetrics(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "metrics"))
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

// BotLogHandler renders records as "15:04:05 [LEVEL] [COMPONENT] message"
// with per-component colours.
type BotLogHandler struct {
	w     io.Writer
	opts  *BotLogHandlerOptions
	mu    *sync.Mutex
	attrs []slog.Attr
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	return &BotLogHandler{w: w, opts: opts, mu: &sync.Mutex{}}
}

func (h *BotLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	levelStr, levelColor := levelStyle(r.Level)

	component := ""
	find := func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return false
		}
		return true
	}
	for _, a := range h.attrs {
		if !find(a) {
			break
		}
	}
	if component == "" {
		r.Attrs(find)
	}

	fmt.Fprintf(h.w, "%s", time.Now().Format(DefaultTimeFormat))

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		compColor := getComponentColor(component)
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(compColor, fmt.Sprintf("[%s] %s", component, r.Message)))
		return nil
	}

	displayMsg := fmt.Sprintf("[%s] %s", levelStr, r.Message)
	if levelStr == "INFO" && strings.HasPrefix(r.Message, "[") {
		if idx := strings.Index(r.Message, "]"); idx > 0 && idx < 20 {
			displayMsg = r.Message
		}
	}
	fmt.Fprintf(h.w, " %s\n", colorizeWithResets(levelColor, displayMsg))
	return nil
}

// WithAttrs carries attributes forward so a component set on a derived
// logger is honoured. Other attributes are not rendered.
func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *BotLogHandler) WithGroup(string) slog.Handler { return h }

// --- Formatting Helpers ---

func levelStyle(l slog.Level) (string, *color.Color) {
	switch {
	case l >= LevelFatal:
		return "FATAL", fatalColor
	case l >= slog.LevelError:
		return "ERROR", errorColor
	case l >= slog.LevelWarn:
		return "WARN", warnColor
	case l >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", infoColor
	}
}

func getComponentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "VOICE":
		return voiceColor
	case "LOADER":
		return loaderColor
	case "METRICS":
		return metricsColor
	default:
		return color.New(color.FgCyan)
	}
}

func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]

	return c.Sprint(strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq))
}

func GetLogPath() string {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile == nil {
		return ""
	}
	return logFile.Name()
}

// --- ANSI Stripper ---

type StripANSIWriter struct {
	w  io.Writer
	re *regexp.Regexp
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{
		w:  w,
		re: regexp.MustCompile(`\x1b\[[0-9;]*m`),
	}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	_, err = s.w.Write(s.re.ReplaceAll(p, nil))
	return len(p), err
}

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad   = "Failed to load config: %v"
	MsgConfigMissingToken   = "DISCORD_TOKEN is not set in .env file"
	MsgConfigInvalidGuild   = "invalid GUILD_ID: must be a valid Snowflake"
	MsgConfigInvalidTimeout = "invalid VOICE_IDLE_TIMEOUT %q: %v"
	MsgConfigInvalidRate    = "invalid VOICE_RESOLVE_RATE %q: %v"
	MsgConfigNonPositive    = "%s must be positive"
	MsgDatabaseInitSuccess  = "Database initialized successfully"
	MsgDatabaseTableError   = "Failed to create table: %w"
	MsgDatabasePragmaError  = "Failed to set pragma %s: %w"
	MsgDaemonStarting       = "Starting..."
	MsgBotStarting          = "Starting %s..."
	MsgBotReady             = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown          = "Shutting down %s..."
	MsgBotShutdownDaemons   = "Shutting down all daemons..."
	MsgBotKillingOld        = "Killing running instance... (PID: %d)"
	MsgBotOldStubborn       = "Old process %d is stubborn. Sending SIGKILL..."
	MsgBotOldSurvived       = "Process %d still exists after SIGKILL"
	MsgBotOldTerminated     = "Old instance terminated."
	MsgBotPIDOpenFail       = "Failed to open PID file: %v"
	MsgBotPIDLockFail       = "Failed to lock PID file: %v"
	MsgBotRegisterFail      = "Command registration failed: %v"
	MsgBotRegisterSkipped   = "Skipping command registration as requested."
	MsgBotUsernameFail      = "Failed to get bot username: %v"
	MsgBotAPIStatusError    = "discord API returned status %d"
	MsgGenericError         = "%v"

	// --- Command Loader & Registry ---
	MsgLoaderSyncCommands       = "Syncing %s commands..."
	MsgLoaderUpToDate           = "Commands are up to date. (Hash: %s)"
	MsgLoaderCleanup            = "[CLEANUP] Removing commands from previous dev guild: %s"
	MsgLoaderDevStarting        = "[DEV] Registering commands to guild: %s"
	MsgLoaderDevRegistered      = "[DEV] Registered: %s"
	MsgLoaderDevFail            = "[DEV] Registration failed: %v"
	MsgLoaderDevGlobalClear     = "[DEV] Verifying global commands are cleared..."
	MsgLoaderDevGlobalClearFail = "[DEV] Global clear skipped (likely rate limited): %v"
	MsgLoaderProdStarting       = "[PROD] Registering commands globally..."
	MsgLoaderProdRegistered     = "[PROD] Registered: %s"
	MsgLoaderProdFail           = "[PROD] Global registration failed: %w"
	MsgLoaderScanStarting       = "[SCAN] Checking all guilds for ghost commands..."
	MsgLoaderScanCleared        = "[SCAN] Cleared ghost commands from: %s (%s)"
	MsgLoaderPanicRecovered     = "Panic recovered in handler: %v"

	// --- Metrics ---
	MsgMetricsListening = "Serving metrics on %s/metrics"
	MsgMetricsServeFail = "Metrics server stopped: %v"

	// --- Voice System (logs) ---
	MsgVoiceAlreadyRunning    = "Refusing to start a second player for guild %s"
	MsgVoiceStartingPlayer    = "Starting player for guild %s"
	MsgVoiceConnected         = "Joined channel %s in guild %s"
	MsgVoiceConnectFailed     = "Failed to connect to voice in guild %s: %v"
	MsgVoiceNowPlaying        = "Now playing %q in guild %s"
	MsgVoiceTrackFailed       = "Track %q failed in guild %s: %v"
	MsgVoiceStopTimeout       = "Transport in guild %s did not stop in time"
	MsgVoiceIdleRetire        = "Guild %s idle for %s, disconnecting"
	MsgVoiceLeaving           = "Leaving voice in guild %s"
	MsgVoiceLeaveTimeout      = "Player in guild %s did not stop within %s"
	MsgVoiceDisconnectFailed  = "Failed to disconnect from voice in guild %s: %v"
	MsgVoiceShutdownLeaveFail = "Failed to leave guild %s on shutdown: %v"
	MsgVoiceShuttingDown      = "Shutting down voice manager..."
	MsgVoiceExternalLeave     = "Disconnected externally from guild %s"
	MsgVoiceHistoryFailed     = "Failed to record track history: %v"
	MsgVoiceResolveFailed     = "Failed to resolve %q: %v"
	MsgVoiceSpeakingFailed    = "Failed to set speaking state in guild %s: %v"
	MsgVoiceProviderPanic     = "Recovered from panic in SetOpusFrameProvider: %v"
	MsgVoiceRespondError      = "Failed to respond to interaction: %v"
	MsgVoiceNotifyFailed      = "Failed to send notification to channel %s: %v"
	MsgVoiceStatsFailed       = "Failed to sample host stats: %v"
	MsgVoicePresenceRotated   = "Presence set to %q (next in %s)"
	MsgVoicePresenceFailed    = "Failed to update presence: %v"

	// --- Voice System (user facing) ---
	MsgVoiceQueued        = "Added **%s** to the queue at position **%d**."
	MsgVoicePlayingNext   = "Playing **%s**."
	MsgVoiceSkipped       = "Skipped **%s**."
	MsgVoiceRemoved       = "Removed **%s** from position **%d**."
	MsgVoiceCleared       = "Cleared **%d** item(s) from the queue."
	MsgVoiceLeft          = "Left the voice channel."
	MsgVoiceQueueEmpty    = "The queue is empty."
	MsgVoiceQueueHeader   = "**Queue** (%d pending)\n"
	MsgVoiceQueueNow      = "**Now playing:** %s\n\n"
	MsgVoiceQueueItem     = "%d. %s\n"
	MsgVoiceQueueMore     = "> ...and %d more."
	MsgVoiceHistoryHeader = "**Recently played** (%d total)\n"
	MsgVoiceHistoryItem   = "%d. %s <t:%d:R>\n"
	MsgVoiceHistoryEmpty  = "Nothing has been played in this server yet."
	MsgVoiceStatsContent  = "**Voice System Status**\n\n" +
		"> Active sessions: `%d`\n" +
		"> Goroutines: `%d`\n" +
		"> CPU: `%.1f%%`\n" +
		"> Memory: `%.1f%%`\n"

	MsgVoiceNotifyNowPlaying    = "Now playing: **%s**"
	MsgVoiceNotifyTrackFailed   = "Could not play **%s**, skipping."
	MsgVoiceNotifyIdle          = "Left the voice channel after a period of inactivity."
	MsgVoiceNotifyConnectFailed = "Could not join the voice channel."

	ErrVoiceGuildOnly      = "This command can only be used in a server."
	ErrVoiceNotInVoice     = "You need to be in a voice channel."
	ErrVoiceResolveFailed  = "Could not find anything playable for that query."
	ErrVoiceNothingPlaying = "Nothing is playing."
	ErrVoiceOutOfRange     = "There is no item at that position."
	ErrVoiceNotConnected   = "I'm not in a voice channel."
	ErrVoiceNotReady       = "The voice system is still starting, try again in a moment."
	ErrVoiceHistoryFailed  = "Failed to retrieve the play history."
	ErrVoiceGeneric        = "Something went wrong."
)
