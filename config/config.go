// Package config reads the bot settings from MAGIKBOT_* environment variables.
package config

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/graynk/magikbot/media"
)

const Prefix = "MAGIKBOT_"

type Config struct {
	BotToken string  `env:"BOT_TOKEN" validate:"required"`
	AdminIDs []int64 `env:"ADMIN_IDS"`
	// ChatAdminsElevated also lets group owners and admins run /ffmpeg
	ChatAdminsElevated bool `env:"CHAT_ADMINS_ELEVATED, default=false"`

	UploadDir  string `env:"UPLOAD_DIR, default=./uploads" validate:"required"`
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" validate:"required"`
	MagickPath string `env:"MAGICK_PATH, default=convert" validate:"required"`
	// LinkPattern falls back to media.DefaultLinkPattern when empty
	LinkPattern string `env:"LINK_PATTERN"`

	TranscodeTimeout time.Duration `env:"TRANSCODE_TIMEOUT, default=60s" validate:"gt=0"`
	MagikTimeout     time.Duration `env:"MAGIK_TIMEOUT, default=60s" validate:"gt=0"`
	DownloadTimeout  time.Duration `env:"DOWNLOAD_TIMEOUT, default=30s" validate:"gt=0"`
	PollTimeout      time.Duration `env:"POLL_TIMEOUT, default=10s" validate:"gt=0"`

	RateLimit  int           `env:"RATE_LIMIT, default=3" validate:"gt=0"`
	RatePeriod time.Duration `env:"RATE_PERIOD, default=5m" validate:"gt=0"`

	// StatsDB is a sqlite path, stats are off when it's empty
	StatsDB string `env:"STATS_DB"`

	LogLevel  string `env:"LOG_LEVEL, default=info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT, default=json" validate:"oneof=json console"`
}

// Load picks up a .env file when there is one, then reads the environment.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(ctx, envconfig.OsLookuper())
}

func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(Prefix, lookuper),
	})
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LinkPattern == "" {
		cfg.LinkPattern = media.DefaultLinkPattern
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "config")
	}
	if _, err := regexp.Compile(c.LinkPattern); err != nil {
		return errors.Wrap(err, "config: LINK_PATTERN")
	}
	return nil
}

func (c *Config) LinkRegexp() *regexp.Regexp {
	return regexp.MustCompile(c.LinkPattern)
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) NewLogger() (*zap.SugaredLogger, error) {
	zapConfig := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, errors.WithStack(err)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return logger.Sugar(), nil
}

// String never prints the token.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{AdminIDs: %v, ChatAdminsElevated: %t, UploadDir: %s, FFmpegPath: %s, MagickPath: %s, LinkPattern: %s, TranscodeTimeout: %s, MagikTimeout: %s, DownloadTimeout: %s, RateLimit: %d/%s, StatsDB: %q, LogLevel: %s, LogFormat: %s}",
		c.AdminIDs, c.ChatAdminsElevated, c.UploadDir, c.FFmpegPath, c.MagickPath, c.LinkPattern,
		c.TranscodeTimeout, c.MagikTimeout, c.DownloadTimeout,
		c.RateLimit, c.RatePeriod, c.StatsDB, c.LogLevel, c.LogFormat,
	)
}
