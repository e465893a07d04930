package stats

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

func (p Period) Duration() (time.Duration, bool) {
	switch p {
	case Daily:
		return 24 * time.Hour, true
	case Weekly:
		return 7 * 24 * time.Hour, true
	case Monthly:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// Record is one handled command. No media, no message text.
type Record struct {
	UserID      int64
	ChatID      int64
	IsGroupChat bool
	Command     string
	Outcome     string
	Date        time.Time
}

type Stat struct {
	Interactions int
	Users        int
	Chats        int
	Groups       int
	Transcodes   int
	Magiks       int
	Failures     int
	Timeouts     int
}

type MagikDB struct {
	db     *sql.DB
	insert *sql.Stmt
}

// InitDB opens (and creates) the sqlite database at path.
func InitDB(path string) (*MagikDB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?cache=shared")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	db.SetMaxOpenConns(1)

	sqlStmt := `
	create table if not exists stats(id integer not null primary key, user_id integer, chat_id integer, is_group_chat integer, date integer, command text, outcome text);
	create index if not exists stats_date on stats(date);
	`
	if _, err = db.Exec(sqlStmt); err != nil {
		db.Close()
		return nil, errors.WithStack(err)
	}
	stmt, err := db.Prepare(`insert into stats(user_id, chat_id, is_group_chat, date, command, outcome) values(?, ?, ?, ?, ?, ?);`)
	if err != nil {
		db.Close()
		return nil, errors.WithStack(err)
	}
	return &MagikDB{db: db, insert: stmt}, nil
}

// SaveStat is a no-op on a nil *MagikDB, which is how disabled stats look.
func (d *MagikDB) SaveStat(r Record) error {
	if d == nil {
		return nil
	}
	if r.Date.IsZero() {
		r.Date = time.Now()
	}
	_, err := d.insert.Exec(r.UserID, r.ChatID, r.IsGroupChat, r.Date.Unix(), r.Command, r.Outcome)
	return errors.WithStack(err)
}

func (d *MagikDB) GetStat(period Period) (Stat, error) {
	return d.GetStatSince(period, time.Now())
}

func (d *MagikDB) GetStatSince(period Period, now time.Time) (Stat, error) {
	var stat Stat
	if d == nil {
		return stat, errors.New("stats are disabled")
	}
	duration, ok := period.Duration()
	if !ok {
		return stat, errors.Errorf("unknown period %q", period)
	}
	row := d.db.QueryRow(`
	select count(*),
		count(distinct user_id),
		count(distinct chat_id),
		count(distinct case when is_group_chat then chat_id end),
		coalesce(sum(case when command = 'ffmpeg' then 1 else 0 end), 0),
		coalesce(sum(case when command = 'magik' then 1 else 0 end), 0),
		coalesce(sum(case when outcome != 'ok' then 1 else 0 end), 0),
		coalesce(sum(case when outcome = 'timeout' then 1 else 0 end), 0)
	from stats where date > ?;`, now.Add(-duration).Unix())
	err := row.Scan(&stat.Interactions, &stat.Users, &stat.Chats, &stat.Groups,
		&stat.Transcodes, &stat.Magiks, &stat.Failures, &stat.Timeouts)
	return stat, errors.WithStack(err)
}

func (d *MagikDB) Close() error {
	if d == nil {
		return nil
	}
	d.insert.Close()
	return d.db.Close()
}
