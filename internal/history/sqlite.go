package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rbright/earworm/internal/recognize"
)

// SQLiteStore keeps history in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("history.sqlite_path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite history: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			session_id INTEGER NOT NULL,
			transcript TEXT NOT NULL,
			normalized TEXT NOT NULL,
			title TEXT,
			artist TEXT,
			display_title TEXT,
			url TEXT,
			artwork_url TEXT,
			preview_url TEXT,
			source TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS history_created_at ON history (created_at DESC);
	`)
	return err
}

// Append inserts one entry.
func (s *SQLiteStore) Append(ctx context.Context, entry Entry) error {
	var title, artist, display, link, artwork, preview, source sql.NullString
	if r := entry.Result; r != nil {
		title = nullString(r.Title)
		artist = nullString(r.Artist)
		display = nullString(r.DisplayTitle)
		link = nullString(r.URL)
		artwork = nullString(r.ArtworkURL)
		preview = nullString(r.PreviewURL)
		source = nullString(string(r.Source))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, session_id, transcript, normalized, title, artist, display_title, url, artwork_url, preview_url, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		int64(entry.SessionID),
		entry.Transcript,
		entry.Normalized,
		title, artist, display, link, artwork, preview, source,
		entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, session_id, transcript, normalized, title, artist, display_title, url, artwork_url, preview_url, source, created_at
		FROM history
		ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry                                                  Entry
			sessionID, createdAt                                   int64
			title, artist, display, link, artwork, preview, source sql.NullString
		)
		if err := rows.Scan(
			&entry.ID,
			&sessionID,
			&entry.Transcript,
			&entry.Normalized,
			&title, &artist, &display, &link, &artwork, &preview, &source,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.SessionID = uint64(sessionID)
		entry.CreatedAt = time.Unix(0, createdAt).UTC()
		if title.Valid || artist.Valid {
			entry.Result = &recognize.SongResult{
				Title:        title.String,
				Artist:       artist.String,
				DisplayTitle: display.String,
				URL:          link.String,
				ArtworkURL:   artwork.String,
				PreviewURL:   preview.String,
				Source:       recognize.Source(source.String),
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
