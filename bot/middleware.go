package bot

import (
	"time"

	"github.com/pkg/errors"
	tb "gopkg.in/telebot.v3"

	"github.com/graynk/magikbot/stats"
	"github.com/graynk/magikbot/tools"
)

// chain applies m so that the first middleware runs first, same as telebot.
func chain(h tb.HandlerFunc, m ...tb.MiddlewareFunc) tb.HandlerFunc {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// ErrMiddleware is the only place where errors become replies. The error is
// consumed here, telebot's OnError never sees it.
func (d *magikBot) ErrMiddleware(h tb.HandlerFunc) tb.HandlerFunc {
	return func(c tb.Context) error {
		err := h(c)
		if err != nil {
			errStr, isFriendly := tools.GetUserFriendlyErr(err)
			if !isFriendly {
				d.logger.Errorw("command failed", "error", err, "user", senderID(c), "chat", chatID(c))
			}
			if sentErr := d.SendMessageWithRepeater(c, errStr, tb.ModeHTML); sentErr != nil {
				d.logger.Error(sentErr)
			}
		}
		return nil
	}
}

func (d *magikBot) RecoverMiddleware(h tb.HandlerFunc) tb.HandlerFunc {
	return func(c tb.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic: %v", r)
			}
		}()
		return h(c)
	}
}

func (d *magikBot) ShutdownMiddleware(h tb.HandlerFunc) tb.HandlerFunc {
	return func(c tb.Context) error {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			d.logger.Debugw("dropping update, shutting down", "user", senderID(c), "chat", chatID(c))
			return nil
		}
		d.graceWg.Add(1)
		d.mu.Unlock()
		defer d.graceWg.Done()
		return h(c)
	}
}

// StatsMiddleware logs every command with its outcome and saves it when
// stats are enabled.
func (d *magikBot) StatsMiddleware(command string) tb.MiddlewareFunc {
	return func(h tb.HandlerFunc) tb.HandlerFunc {
		return func(c tb.Context) error {
			started := time.Now()
			err := h(c)
			outcome := tools.Outcome(err)
			d.logger.Infow("command handled",
				"command", command,
				"outcome", outcome,
				"user", senderID(c),
				"chat", chatID(c),
				"took", time.Since(started),
			)
			record := stats.Record{
				UserID:  senderID(c),
				ChatID:  chatID(c),
				Command: command,
				Outcome: outcome,
				Date:    started,
			}
			if chat := c.Chat(); chat != nil {
				record.IsGroupChat = chat.Type != tb.ChatPrivate
			}
			if saveErr := d.db.SaveStat(record); saveErr != nil {
				d.logger.Error(saveErr)
			}
			return err
		}
	}
}

// ElevatedMiddleware lets through configured admins, and chat admins when
// that is switched on. Everybody else gets tools.PermissionErr before any
// work is done.
func (d *magikBot) ElevatedMiddleware(h tb.HandlerFunc) tb.HandlerFunc {
	return func(c tb.Context) error {
		if !d.isElevated(c) {
			return tools.PermissionErr
		}
		return h(c)
	}
}

func (d *magikBot) isElevated(c tb.Context) bool {
	sender := c.Sender()
	if sender == nil {
		return false
	}
	if d.cfg.IsAdmin(sender.ID) {
		return true
	}
	chat := c.Chat()
	if !d.cfg.ChatAdminsElevated || chat == nil || chat.Type == tb.ChatPrivate {
		return false
	}
	isAdmin, err := d.members.IsChatAdmin(chat, sender)
	if err != nil {
		d.logger.Warnw("couldn't check chat member", "error", err, "user", sender.ID, "chat", chat.ID)
		return false
	}
	return isAdmin
}

// RateLimitMiddleware rejects, it never queues. Configured admins are exempt.
func (d *magikBot) RateLimitMiddleware(h tb.HandlerFunc) tb.HandlerFunc {
	return func(c tb.Context) error {
		id := senderID(c)
		if d.cfg.IsAdmin(id) {
			return h(c)
		}
		if err := d.rl.Allow(id, time.Now()); err != nil {
			return err
		}
		return h(c)
	}
}
