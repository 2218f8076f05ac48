package sys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/mattn/go-sqlite3"
)

var DB *sql.DB

func InitDatabase(ctx context.Context, dataSourceName string) error {
	// The driver registers itself in its init; referencing it keeps the
	// import explicit.
	_ = sqlite3.SQLiteDriver{}

	var err error
	DB, err = sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return err
	}

	DB.SetMaxOpenConns(5)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := DB.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := DB.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS track_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			user_id TEXT,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			channel TEXT,
			duration INTEGER DEFAULT 0,
			played_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_track_history_guild ON track_history (guild_id, played_at DESC)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}

// --- Bot Persistence ---

// GetBotConfig returns the stored value for key, or "" when unset.
func GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Track History ---

type TrackPlay struct {
	ID       int64
	GuildID  snowflake.ID
	UserID   snowflake.ID
	URL      string
	Title    string
	Channel  string
	Duration time.Duration
	PlayedAt time.Time
}

func AddTrackPlay(ctx context.Context, p *TrackPlay) error {
	if p.PlayedAt.IsZero() {
		p.PlayedAt = time.Now().UTC()
	}
	res, err := DB.ExecContext(ctx, `
		INSERT INTO track_history (guild_id, user_id, url, title, channel, duration, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.GuildID.String(), p.UserID.String(), p.URL, p.Title, p.Channel, int64(p.Duration/time.Second), p.PlayedAt)
	if err != nil {
		return err
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

// GetRecentTrackPlays returns the latest plays of a guild, newest first.
func GetRecentTrackPlays(ctx context.Context, guildID snowflake.ID, limit int) ([]*TrackPlay, error) {
	rows, err := DB.QueryContext(ctx, `
		SELECT id, guild_id, user_id, url, title, channel, duration, played_at
		FROM track_history WHERE guild_id = ? ORDER BY played_at DESC, id DESC LIMIT ?
	`, guildID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plays []*TrackPlay
	for rows.Next() {
		p := &TrackPlay{}
		var gid, uid string
		var channel sql.NullString
		var secs int64
		if err := rows.Scan(&p.ID, &gid, &uid, &p.URL, &p.Title, &channel, &secs, &p.PlayedAt); err != nil {
			return nil, err
		}
		p.GuildID, _ = snowflake.Parse(gid)
		p.UserID, _ = snowflake.Parse(uid)
		p.Channel = channel.String
		p.Duration = time.Duration(secs) * time.Second
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

func GetTrackPlayCount(ctx context.Context, guildID snowflake.ID) (int, error) {
	var count int
	err := DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_history WHERE guild_id = ?", guildID.String()).Scan(&count)
	return count, err
}

// GetTotalTrackPlays counts plays across every guild.
func GetTotalTrackPlays(ctx context.Context) (int, error) {
	var count int
	err := DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_history").Scan(&count)
	return count, err
}
