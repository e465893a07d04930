package bot

import (
	"strings"
	"time"

	tb "gopkg.in/telebot.v3"

	"github.com/graynk/magikbot/tools"
)

// SendMessageWithRepeater sends toSend, waiting out flood limits.
func (d *magikBot) SendMessageWithRepeater(c tb.Context, toSend interface{}, opts ...interface{}) error {
	return d.sendWithRepeater(c, func() interface{} { return toSend }, opts...)
}

// sendWithRepeater rebuilds the message for every attempt, readers can
// only be uploaded once.
func (d *magikBot) sendWithRepeater(c tb.Context, build func() interface{}, opts ...interface{}) error {
	err := c.Send(build(), opts...)
	for err != nil {
		if strings.Contains(err.Error(), "not enough rights to send") {
			c.Send(tools.NotEnoughRights)
		}
		var timeout int
		timeout, err = tools.ExtractPossibleTimeout(err)
		if err != nil {
			d.logger.Error(err)
			return err
		}
		time.Sleep(time.Duration(timeout) * time.Second)
		err = c.Send(build(), opts...)
	}
	return nil
}

// commandName returns "/cmd" for "/cmd@somebot args", or "" for anything
// that is not a command.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return name
}

// commandPayload is telebot's Payload, which stays empty for captions.
func commandPayload(m *tb.Message) string {
	if m.Payload != "" {
		return m.Payload
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	text = strings.TrimSpace(text)
	if commandName(text) == "" {
		return ""
	}
	idx := strings.IndexFunc(text, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t'
	})
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(text[idx:])
}

func senderID(c tb.Context) int64 {
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}

func chatID(c tb.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}
