package bot

import (
	"context"
	"sync"

	"go.uber.org/zap"
	tb "gopkg.in/telebot.v3"

	"github.com/graynk/magikbot/config"
	"github.com/graynk/magikbot/distorters"
	"github.com/graynk/magikbot/media"
	"github.com/graynk/magikbot/stats"
	"github.com/graynk/magikbot/tools"
)

// MemberChecker reports whether a user runs the chat.
type MemberChecker interface {
	IsChatAdmin(chat *tb.Chat, user *tb.User) (bool, error)
}

type botMembers struct {
	b *tb.Bot
}

func NewMemberChecker(b *tb.Bot) MemberChecker {
	return botMembers{b: b}
}

func (m botMembers) IsChatAdmin(chat *tb.Chat, user *tb.User) (bool, error) {
	member, err := m.b.ChatMemberOf(chat, user)
	if err != nil {
		return false, err
	}
	return member.Role == tb.Creator || member.Role == tb.Administrator, nil
}

type magikBot struct {
	cfg        *config.Config
	resolver   media.Resolver
	fetcher    *tools.Fetcher
	transcoder distorters.Transcoder
	magik      distorters.Magik
	members    MemberChecker
	rl         *tools.RateLimiter
	db         *stats.MagikDB
	logger     *zap.SugaredLogger
	graceWg    *sync.WaitGroup

	// ctx is cancelled by Shutdown and kills whatever tool is still running
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
}

// NewMagikBot wires the handlers. db may be nil when stats are disabled.
func NewMagikBot(cfg *config.Config, locator media.FileLocator, members MemberChecker, db *stats.MagikDB, logger *zap.SugaredLogger) *magikBot {
	ctx, cancel := context.WithCancel(context.Background())
	return &magikBot{
		cfg:        cfg,
		resolver:   media.NewResolver(locator, cfg.LinkRegexp(), tools.MaxSizeMb),
		fetcher:    tools.NewFetcher(cfg.DownloadTimeout, tools.MaxSizeMb),
		transcoder: distorters.NewTranscoder(cfg.FFmpegPath, cfg.UploadDir, cfg.TranscodeTimeout),
		magik:      distorters.NewMagik(cfg.MagickPath, cfg.MagikTimeout),
		members:    members,
		rl:         tools.NewRateLimiter(cfg.RateLimit, cfg.RatePeriod),
		db:         db,
		logger:     logger,
		graceWg:    &sync.WaitGroup{},
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Register attaches every command to b. Commands also work as a caption
// on the media itself.
func (d *magikBot) Register(b *tb.Bot) {
	b.Use(d.global()...)

	transcode := d.transcodeHandler()
	magik := d.magikHandler()
	captioned := map[string]tb.HandlerFunc{
		"/ffmpeg": transcode,
		"/magik":  magik,
	}

	b.Handle("/start", d.HandleStart)
	b.Handle("/help", d.HandleStart)
	b.Handle("/ffmpeg", transcode)
	b.Handle("/magik", magik)
	b.Handle(tb.OnMedia, func(c tb.Context) error {
		if h, ok := captioned[commandName(c.Message().Caption)]; ok {
			return h(c)
		}
		return nil
	})

	b.Handle("/daily", func(c tb.Context) error {
		return d.HandleStatRequest(c, stats.Daily)
	})
	b.Handle("/weekly", func(c tb.Context) error {
		return d.HandleStatRequest(c, stats.Weekly)
	})
	b.Handle("/monthly", func(c tb.Context) error {
		return d.HandleStatRequest(c, stats.Monthly)
	})
}

// global runs around every handler, the error middleware must stay outside
// of recover so panics are reported too.
func (d *magikBot) global() []tb.MiddlewareFunc {
	return []tb.MiddlewareFunc{d.ShutdownMiddleware, d.ErrMiddleware, d.RecoverMiddleware}
}

// Permission is checked before the rate limit, rejected users don't use up
// their quota.
func (d *magikBot) transcodeHandler() tb.HandlerFunc {
	return chain(d.HandleTranscode, d.StatsMiddleware("ffmpeg"), d.ElevatedMiddleware, d.RateLimitMiddleware)
}

func (d *magikBot) magikHandler() tb.HandlerFunc {
	return chain(d.HandleMagik, d.StatsMiddleware("magik"), d.RateLimitMiddleware)
}

// Shutdown stops taking commands, kills running tools and waits for their
// handlers to clean up and reply.
func (d *magikBot) Shutdown() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
	d.graceWg.Wait()
}
