package bot

import (
	"fmt"

	tb "gopkg.in/telebot.v3"

	"github.com/graynk/magikbot/stats"
)

func (d *magikBot) HandleStatRequest(c tb.Context, period stats.Period) error {
	if !d.cfg.IsAdmin(senderID(c)) {
		return nil
	}
	if d.db == nil {
		return c.Send("Stats are disabled, set MAGIKBOT_STATS_DB to turn them on")
	}
	stat, err := d.db.GetStat(period)
	if err != nil {
		d.logger.Error(err)
		return c.Send(err.Error())
	}
	header := "Stats for the past %s"
	switch period {
	case stats.Daily:
		header = fmt.Sprintf(header, "24 hours")
	case stats.Weekly:
		header = fmt.Sprintf(header, "week")
	case stats.Monthly:
		header = fmt.Sprintf(header, "month")
	default:
		d.logger.Warnw("stats asked for a weird period", "period", string(period))
		return nil
	}
	message := fmt.Sprintf("*%s*\nHandled %d commands from %d users in %d distinct chats, %d of which were group chats\n",
		header, stat.Interactions, stat.Users, stat.Chats, stat.Groups)
	details := fmt.Sprintf(`
*Breakdown by command*
_ffmpeg_: %d
_magik_: %d

*Failures*: %d, %d of them timeouts
`,
		stat.Transcodes, stat.Magiks, stat.Failures, stat.Timeouts)
	return c.Send(message+details, tb.ModeMarkdown)
}
