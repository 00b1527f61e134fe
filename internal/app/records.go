package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/earworm/internal/cli"
	"github.com/rbright/earworm/internal/config"
	"github.com/rbright/earworm/internal/history"
	"github.com/rbright/earworm/internal/recognize"
	"gopkg.in/yaml.v3"
)

// commandSearch runs a one-shot lyrics search without touching the owner session.
func (r Runner) commandSearch(ctx context.Context, cfg config.Config, text string, logger *slog.Logger) int {
	if len(strings.TrimSpace(cfg.Credentials.Lyrics)) < max(cfg.Recognition.MinCredentialLength, 1) {
		err := recognize.Wrapf(recognize.ErrMissingCredentials, "", fmt.Errorf("missing: lyrics"))
		fmt.Fprintf(r.Stderr, "error: %s\n", recognize.Message(err))
		return 1
	}

	searcher := newPipeline(cfg, history.Discard{}, logger)
	observation, found, err := searcher.SearchText(ctx, text)
	if err != nil {
		logger.Warn("manual search failed", "error", err.Error(), "error_kind", recognize.KindOf(err))
		fmt.Fprintf(r.Stderr, "error: %s\n", recognize.Message(err))
		return 1
	}
	if !found {
		fmt.Fprintln(r.Stdout, "no match")
		return 0
	}

	logger.Info("manual search matched",
		"song", observation.Result.Label(),
		"confidence", observation.Confidence,
	)
	fmt.Fprintln(r.Stdout, formatSong(observation.Result.Label(), observation.Result.URL, observation.Confidence))
	return 0
}

func (r Runner) commandHistory(ctx context.Context, cfg config.Config, format string, limit int) int {
	if limit <= 0 {
		limit = cfg.History.Limit
	}

	store, err := openHistory(ctx, cfg.History)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: list history: %v\n", err)
		return 1
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	switch format {
	case cli.FormatJSON:
		enc := json.NewEncoder(r.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			fmt.Fprintf(r.Stderr, "error: encode history: %v\n", err)
			return 1
		}
	case cli.FormatYAML:
		enc := yaml.NewEncoder(r.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			fmt.Fprintf(r.Stderr, "error: encode history: %v\n", err)
			return 1
		}
		if err := enc.Close(); err != nil {
			fmt.Fprintf(r.Stderr, "error: encode history: %v\n", err)
			return 1
		}
	default:
		if len(entries) == 0 {
			fmt.Fprintln(r.Stdout, "no history")
			return 0
		}
		for _, entry := range entries {
			fmt.Fprintln(r.Stdout, formatEntry(entry))
		}
	}
	return 0
}

func formatEntry(entry history.Entry) string {
	song := "no match"
	if entry.Result != nil {
		song = formatSong(entry.Result.Label(), entry.Result.URL, 0)
	}
	return fmt.Sprintf("%s | %s | %q", entry.CreatedAt.Local().Format(time.DateTime), song, entry.Transcript)
}
