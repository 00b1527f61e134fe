// Package output copies recognized songs to the clipboard.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/earworm/internal/config"
	"github.com/rbright/earworm/internal/recognize"
)

// systemClipboard is swapped in tests.
var systemClipboard = clipboard.WriteAll

// Committer copies the recognized song to the clipboard.
type Committer struct {
	command config.CommandConfig
	logger  *slog.Logger
}

// NewCommitter constructs a committer. An empty clipboard command falls back
// to the system clipboard.
func NewCommitter(cfg config.Config, logger *slog.Logger) *Committer {
	return &Committer{command: cfg.Clipboard, logger: logger}
}

// Text renders the clipboard payload for a result.
func Text(result recognize.SongResult) string {
	return strings.TrimSpace(result.Label() + " " + strings.TrimSpace(result.URL))
}

// Commit writes "<display title> <link>" to the clipboard.
func (c *Committer) Commit(ctx context.Context, result recognize.SongResult) error {
	text := Text(result)
	if text == "" {
		return nil
	}

	if len(c.command.Argv) == 0 {
		if err := systemClipboard(text); err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
		c.logDebug("clipboard set", "backend", "system", "chars", len(text))
		return nil
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := runCommandWithInput(clipboardCtx, c.command.Argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	c.logDebug("clipboard set", "backend", c.command.Argv[0], "chars", len(text))
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

func (c *Committer) logDebug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}
