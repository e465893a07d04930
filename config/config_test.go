package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/graynk/magikbot/media"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"MAGIKBOT_BOT_TOKEN": "123:abc",
	}))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "convert", cfg.MagickPath)
	assert.Equal(t, media.DefaultLinkPattern, cfg.LinkPattern)
	assert.Equal(t, 60*time.Second, cfg.TranscodeTimeout)
	assert.Equal(t, 60*time.Second, cfg.MagikTimeout)
	assert.Equal(t, 30*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, 3, cfg.RateLimit)
	assert.Equal(t, 5*time.Minute, cfg.RatePeriod)
	assert.Empty(t, cfg.StatsDB)
	assert.Empty(t, cfg.AdminIDs)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"MAGIKBOT_BOT_TOKEN":         "123:abc",
		"MAGIKBOT_ADMIN_IDS":         "10,20",
		"MAGIKBOT_TRANSCODE_TIMEOUT": "90s",
		"MAGIKBOT_LINK_PATTERN":      `https://media\.example/\S+`,
		"MAGIKBOT_LOG_LEVEL":         "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 20}, cfg.AdminIDs)
	assert.True(t, cfg.IsAdmin(20))
	assert.False(t, cfg.IsAdmin(30))
	assert.Equal(t, 90*time.Second, cfg.TranscodeTimeout)
	assert.True(t, cfg.LinkRegexp().MatchString("https://media.example/a.mp4"))
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFrom_MissingToken(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BotToken")
}

func TestLoadFrom_BadPattern(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"MAGIKBOT_BOT_TOKEN":    "123:abc",
		"MAGIKBOT_LINK_PATTERN": "(",
	}))
	assert.Error(t, err)
}

func TestLoadFrom_BadLogFormat(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"MAGIKBOT_BOT_TOKEN":  "123:abc",
		"MAGIKBOT_LOG_FORMAT": "xml",
	}))
	assert.Error(t, err)
}

func TestConfig_StringMasksToken(t *testing.T) {
	cfg := &Config{BotToken: "123:supersecret"}
	assert.NotContains(t, cfg.String(), "supersecret")
}

func TestConfig_NewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "warn", LogFormat: "console"}
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))
}
