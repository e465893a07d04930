package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *MagikDB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "stats.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMagikDB_GetStat(t *testing.T) {
	db := newTestDB(t)
	now := time.Unix(1_700_000_000, 0)

	records := []Record{
		{UserID: 1, ChatID: 1, Command: "magik", Outcome: "ok", Date: now.Add(-time.Hour)},
		{UserID: 2, ChatID: -100, IsGroupChat: true, Command: "ffmpeg", Outcome: "ok", Date: now.Add(-2 * time.Hour)},
		{UserID: 3, ChatID: -100, IsGroupChat: true, Command: "ffmpeg", Outcome: "timeout", Date: now.Add(-3 * time.Hour)},
		{UserID: 1, ChatID: 1, Command: "magik", Outcome: "decode_failure", Date: now.Add(-48 * time.Hour)},
	}
	for _, r := range records {
		require.NoError(t, db.SaveStat(r))
	}

	daily, err := db.GetStatSince(Daily, now)
	require.NoError(t, err)
	assert.Equal(t, Stat{
		Interactions: 3,
		Users:        3,
		Chats:        2,
		Groups:       1,
		Transcodes:   2,
		Magiks:       1,
		Failures:     1,
		Timeouts:     1,
	}, daily)

	weekly, err := db.GetStatSince(Weekly, now)
	require.NoError(t, err)
	assert.Equal(t, 4, weekly.Interactions)
	assert.Equal(t, 2, weekly.Failures)
}

func TestMagikDB_EmptyTable(t *testing.T) {
	db := newTestDB(t)
	stat, err := db.GetStat(Monthly)
	require.NoError(t, err)
	assert.Equal(t, Stat{}, stat)
}

func TestMagikDB_UnknownPeriod(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetStat(Period("yearly"))
	assert.Error(t, err)
}

func TestMagikDB_NilIsDisabled(t *testing.T) {
	var db *MagikDB
	assert.NoError(t, db.SaveStat(Record{Command: "magik"}))
	assert.NoError(t, db.Close())
	_, err := db.GetStat(Daily)
	assert.Error(t, err)
}
