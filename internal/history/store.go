// Package history keeps an audit trail of handled messages in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one handled message: what came in, how it was classified, and
// what happened to it.
type Record struct {
	ID        int64
	ChannelID string
	ThreadID  string
	SenderID  string
	Text      string
	Intent    string
	Outcome   string
	CreatedAt time.Time
}

// sqliteTimeLayout matches the text CURRENT_TIMESTAMP produces.
const sqliteTimeLayout = "2006-01-02 15:04:05"

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// modernc sqlite is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			channel_id TEXT NOT NULL,
			thread_id  TEXT NOT NULL,
			sender_id  TEXT NOT NULL,
			text       TEXT NOT NULL,
			intent     TEXT NOT NULL,
			outcome    TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate history db: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (channel_id, thread_id, sender_id, text, intent, outcome)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ChannelID, rec.ThreadID, rec.SenderID, rec.Text, rec.Intent, rec.Outcome)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// RecentByThread returns up to limit records for a thread, newest first.
func (s *Store) RecentByThread(ctx context.Context, threadID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel_id, thread_id, sender_id, text, intent, outcome, created_at
		 FROM messages WHERE thread_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("query thread history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var created string
		if err := rows.Scan(&r.ID, &r.ChannelID, &r.ThreadID, &r.SenderID, &r.Text, &r.Intent, &r.Outcome, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(sqliteTimeLayout, created)
		records = append(records, r)
	}
	return records, rows.Err()
}

// IntentCounts aggregates how often each intent was routed.
func (s *Store) IntentCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT intent, COUNT(*) FROM messages GROUP BY intent`)
	if err != nil {
		return nil, fmt.Errorf("query intent counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var intent string
		var n int
		if err := rows.Scan(&intent, &n); err != nil {
			return nil, err
		}
		counts[intent] = n
	}
	return counts, rows.Err()
}

// Purge deletes records older than the retention window and returns how
// many went.
func (s *Store) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(sqliteTimeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Info("purged old history", "records", n)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
