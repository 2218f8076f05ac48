package sys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := configFromEnv(envFrom(map[string]string{
		"DISCORD_TOKEN": "token",
		"DATABASE_PATH": "test.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.Token)
	assert.Equal(t, "test.db", cfg.DatabasePath)
	assert.Equal(t, DefaultIdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, DefaultResolveRate, cfg.ResolveRate)
	assert.Equal(t, DefaultYoutubePrefix, cfg.YoutubePrefix)
	assert.Equal(t, DefaultMusicPrefix, cfg.YTMusicPrefix)
	assert.Empty(t, cfg.MetricsAddr)
	assert.False(t, cfg.Silent)
	assert.NoError(t, cfg.Validate())
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	cfg, err := configFromEnv(envFrom(map[string]string{
		"DISCORD_TOKEN":      "token",
		"GUILD_ID":           " 123456789012345678 ",
		"DATABASE_PATH":      "test.db",
		"SILENT":             "true",
		"VOICE_IDLE_TIMEOUT": "90s",
		"VOICE_RESOLVE_RATE": "0.5",
		"VOICE_YT_PREFIX":    "yt:",
		"VOICE_YTM_PREFIX":   "ytm:",
		"METRICS_ADDR":       ":9090",
	}))
	require.NoError(t, err)

	assert.Equal(t, "123456789012345678", cfg.GuildID)
	assert.True(t, cfg.Silent)
	assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 0.5, cfg.ResolveRate)
	assert.Equal(t, "yt:", cfg.YoutubePrefix)
	assert.Equal(t, "ytm:", cfg.YTMusicPrefix)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.NoError(t, cfg.Validate())
}

func TestConfigFromEnv_InvalidValues(t *testing.T) {
	_, err := configFromEnv(envFrom(map[string]string{"VOICE_IDLE_TIMEOUT": "ten minutes"}))
	assert.ErrorContains(t, err, "VOICE_IDLE_TIMEOUT")

	_, err = configFromEnv(envFrom(map[string]string{"VOICE_RESOLVE_RATE": "fast"}))
	assert.ErrorContains(t, err, "VOICE_RESOLVE_RATE")
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Token: "token", IdleTimeout: time.Minute, ResolveRate: 1}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"missing token", func(c *Config) { c.Token = "" }, MsgConfigMissingToken},
		{"short guild id", func(c *Config) { c.GuildID = "123" }, MsgConfigInvalidGuild},
		{"zero idle timeout", func(c *Config) { c.IdleTimeout = 0 }, "VOICE_IDLE_TIMEOUT"},
		{"negative rate", func(c *Config) { c.ResolveRate = -1 }, "VOICE_RESOLVE_RATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.ErrorContains(t, c.Validate(), tt.want)
		})
	}
	assert.NoError(t, valid.Validate())
}
