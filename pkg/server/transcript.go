package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomaze/pkg/events"
	_ "modernc.org/sqlite"
)

// DefaultTranscriptLimit caps how many entries one query returns.
const DefaultTranscriptLimit = 100

// TranscriptEntry is one stored server-wide event.
type TranscriptEntry struct {
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	Room   int       `json:"room"`
	Source string    `json:"source,omitempty"`
	Text   string    `json:"text"`
}

// Transcript records shouts, connects and disconnects in SQLite. It is a
// global bus subscriber: per-player room output is never stored.
type Transcript struct {
	db    *sql.DB
	path  string
	limit int

	mu     sync.Mutex
	closed bool
}

// OpenTranscript opens a SQLite database, sets WAL mode and busy timeout and
// creates the transcript table.
func OpenTranscript(path string, limit int) (*Transcript, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// Set WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS transcript (
		id     INTEGER PRIMARY KEY AUTOINCREMENT,
		ts     INTEGER NOT NULL,
		kind   TEXT NOT NULL,
		room   INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		text   TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating transcript table: %w", err)
	}
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}
	return &Transcript{db: db, path: path, limit: limit}, nil
}

// Path returns the filesystem path of the SQLite database.
func (t *Transcript) Path() string { return t.path }

// Limit returns the maximum number of entries Recent returns.
func (t *Transcript) Limit() int { return t.limit }

// Insert stores one entry.
func (t *Transcript) Insert(ctx context.Context, e TranscriptEntry) error {
	_, err := t.db.ExecContext(ctx,
		"INSERT INTO transcript (ts, kind, room, source, text) VALUES (?, ?, ?, ?, ?)",
		e.Time.UnixNano(), e.Kind, e.Room, e.Source, e.Text)
	if err != nil {
		return fmt.Errorf("transcript insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, oldest first.
func (t *Transcript) Recent(ctx context.Context, limit int) ([]TranscriptEntry, error) {
	if limit <= 0 || limit > t.limit {
		limit = t.limit
	}
	rows, err := t.db.QueryContext(ctx,
		"SELECT ts, kind, room, source, text FROM transcript ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("transcript query: %w", err)
	}
	defer rows.Close()

	var out []TranscriptEntry
	for rows.Next() {
		var e TranscriptEntry
		var ts int64
		if err := rows.Scan(&ts, &e.Kind, &e.Room, &e.Source, &e.Text); err != nil {
			return nil, fmt.Errorf("transcript scan: %w", err)
		}
		e.Time = time.Unix(0, ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript rows: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Purge deletes entries older than retention.
func (t *Transcript) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixNano()
	res, err := t.db.ExecContext(ctx, "DELETE FROM transcript WHERE ts < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("transcript purge: %w", err)
	}
	return res.RowsAffected()
}

// Receive implements events.Subscriber. Only server-wide events are stored.
func (t *Transcript) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvShout, events.EvConnect, events.EvDisconnect:
	default:
		return
	}
	e := TranscriptEntry{
		Time:   time.Now(),
		Kind:   ev.Type.String(),
		Room:   ev.Room,
		Source: ev.Source,
		Text:   strings.Join(ev.Lines, "\n"),
	}
	if err := t.Insert(context.Background(), e); err != nil {
		log.Printf("transcript: %v", err)
	}
}

// Closed implements events.Subscriber.
func (t *Transcript) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close stops recording and closes the database.
func (t *Transcript) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return t.db.Close()
}

var _ events.Subscriber = (*Transcript)(nil)

// StartRetentionCleanup starts an hourly goroutine that purges old entries
// until ctx is cancelled.
func StartRetentionCleanup(ctx context.Context, t *Transcript, retention time.Duration) {
	if t == nil || retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			purged, err := t.Purge(ctx, retention)
			if err != nil {
				log.Printf("transcript cleanup error: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("transcript: purged %d old entries", purged)
			}
		}
	}()
}
