// Package history persists completed recognition passes.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/earworm/internal/recognize"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// ErrUnknownBackend reports an unsupported history.backend value.
var ErrUnknownBackend = errors.New("unknown history backend")

// Entry records one completed final pass.
type Entry struct {
	ID         string                `json:"id" yaml:"id"`
	SessionID  uint64                `json:"session_id" yaml:"session_id"`
	Transcript string                `json:"transcript" yaml:"transcript"`
	Normalized string                `json:"normalized" yaml:"normalized"`
	Result     *recognize.SongResult `json:"result,omitempty" yaml:"result,omitempty"`
	CreatedAt  time.Time             `json:"created_at" yaml:"created_at"`
}

// NewEntry stamps a fresh id and timestamp.
func NewEntry(sessionID uint64, transcript string, normalized string, result *recognize.SongResult) Entry {
	return Entry{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Transcript: transcript,
		Normalized: normalized,
		Result:     result,
		CreatedAt:  time.Now().UTC(),
	}
}

// Store appends and lists history entries, newest first.
type Store interface {
	Append(context.Context, Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	SQLitePath string
	RedisAddr  string
	RedisKey   string
}

// Open constructs the configured store.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.TrimSpace(strings.ToLower(opts.Backend)) {
	case BackendSQLite, "":
		path := strings.TrimSpace(opts.SQLitePath)
		if path == "" {
			resolved, err := DefaultSQLitePath()
			if err != nil {
				return nil, err
			}
			path = resolved
		}
		return OpenSQLite(ctx, path)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisKey)
	case BackendNone:
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Append(context.Context, Entry) error        { return nil }
func (Discard) List(context.Context, int) ([]Entry, error) { return nil, nil }
func (Discard) Close() error                               { return nil }

// DefaultSQLitePath returns $XDG_STATE_HOME/earworm/history.db (fallback ~/.local/state).
func DefaultSQLitePath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "earworm", "history.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for history: %w", err)
	}
	return filepath.Join(home, ".local", "state", "earworm", "history.db"), nil
}
