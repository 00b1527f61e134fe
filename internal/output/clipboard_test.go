package output

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/earworm/internal/config"
	"github.com/rbright/earworm/internal/recognize"
	"github.com/stretchr/testify/require"
)

var song = recognize.SongResult{
	Title:        "Bohemian Rhapsody",
	Artist:       "Queen",
	DisplayTitle: "Bohemian Rhapsody - Queen",
	URL:          "https://lis.tn/bohemian",
}

func TestText(t *testing.T) {
	require.Equal(t, "Bohemian Rhapsody - Queen https://lis.tn/bohemian", Text(song))
	require.Equal(t, "Song by Artist", Text(recognize.SongResult{Title: "Song", Artist: "Artist"}))
	require.Empty(t, Text(recognize.SongResult{}))
}

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "hello from earworm")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from earworm", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestCommitterCommitUsesClipboardCommand(t *testing.T) {
	stubSystemClipboard(t, func(string) error {
		t.Fatal("system clipboard must not be used when clipboard_cmd is set")
		return nil
	})
	scriptPath := writeStdinCaptureScript(t)
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")

	cfg := config.Default()
	cfg.Clipboard = config.CommandConfig{Argv: []string{scriptPath, clipboardPath}}

	err := NewCommitter(cfg, nil).Commit(context.Background(), song)
	require.NoError(t, err)

	data, err := os.ReadFile(clipboardPath)
	require.NoError(t, err)
	require.Equal(t, "Bohemian Rhapsody - Queen https://lis.tn/bohemian", string(data))
}

func TestCommitterCommitFallsBackToSystemClipboard(t *testing.T) {
	var written []string
	stubSystemClipboard(t, func(text string) error {
		written = append(written, text)
		return nil
	})

	err := NewCommitter(config.Default(), nil).Commit(context.Background(), song)
	require.NoError(t, err)
	require.Equal(t, []string{"Bohemian Rhapsody - Queen https://lis.tn/bohemian"}, written)
}

func TestCommitterCommitSkipsEmptyResult(t *testing.T) {
	stubSystemClipboard(t, func(string) error {
		t.Fatal("empty result must not touch the clipboard")
		return nil
	})

	require.NoError(t, NewCommitter(config.Default(), nil).Commit(context.Background(), recognize.SongResult{}))
}

func TestCommitterCommitReturnsErrorWhenClipboardFails(t *testing.T) {
	failScript := writeFailScript(t, "clipboard failed")

	cfg := config.Default()
	cfg.Clipboard = config.CommandConfig{Argv: []string{failScript}}

	err := NewCommitter(cfg, nil).Commit(context.Background(), song)
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")

	stubSystemClipboard(t, func(string) error { return errors.New("no clipboard utilities available") })
	err = NewCommitter(config.Default(), nil).Commit(context.Background(), song)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no clipboard utilities")
}

func stubSystemClipboard(t *testing.T, fn func(string) error) {
	t.Helper()
	original := systemClipboard
	systemClipboard = fn
	t.Cleanup(func() { systemClipboard = original })
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho " + "\"" + message + "\"" + " >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
