package sys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultIdleTimeout   = 600 * time.Second
	DefaultResolveRate   = 2.0
	DefaultYoutubePrefix = "[YT]"
	DefaultMusicPrefix   = "[YTM]"
)

type Config struct {
	Token         string
	GuildID       string
	DatabasePath  string
	Silent        bool
	IdleTimeout   time.Duration
	ResolveRate   float64
	YoutubePrefix string
	YTMusicPrefix string
	MetricsAddr   string
}

var GlobalConfig *Config

// LoadConfig initializes the configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := configFromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

func configFromEnv(getenv func(string) string) (*Config, error) {
	dbPath := getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, GetProjectName()+".db")
	}

	silent, _ := strconv.ParseBool(getenv("SILENT"))

	idle := DefaultIdleTimeout
	if v := getenv("VOICE_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf(MsgConfigInvalidTimeout, v, err)
		}
		idle = d
	}

	rate := DefaultResolveRate
	if v := getenv("VOICE_RESOLVE_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf(MsgConfigInvalidRate, v, err)
		}
		rate = r
	}

	ytPrefix := getenv("VOICE_YT_PREFIX")
	if ytPrefix == "" {
		ytPrefix = DefaultYoutubePrefix
	}
	ytmPrefix := getenv("VOICE_YTM_PREFIX")
	if ytmPrefix == "" {
		ytmPrefix = DefaultMusicPrefix
	}

	return &Config{
		Token:         getenv("DISCORD_TOKEN"),
		GuildID:       strings.TrimSpace(getenv("GUILD_ID")),
		DatabasePath:  dbPath,
		Silent:        silent,
		IdleTimeout:   idle,
		ResolveRate:   rate,
		YoutubePrefix: ytPrefix,
		YTMusicPrefix: ytmPrefix,
		MetricsAddr:   getenv("METRICS_ADDR"),
	}, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(MsgConfigMissingToken)
	}
	if c.GuildID != "" && (len(c.GuildID) < 17 || len(c.GuildID) > 20) {
		return errors.New(MsgConfigInvalidGuild)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf(MsgConfigNonPositive, "VOICE_IDLE_TIMEOUT")
	}
	if c.ResolveRate <= 0 {
		return fmt.Errorf(MsgConfigNonPositive, "VOICE_RESOLVE_RATE")
	}
	return nil
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "bot"
	if err == nil {
		projectName = filepath.Base(exePath)
		projectName = strings.TrimSuffix(projectName, ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}
