package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/earworm/internal/audio"
	"github.com/rbright/earworm/internal/session"
)

// dumpChunk writes chunk PCM as WAV when debug.audio_dump is enabled.
func (p *Pipeline) dumpChunk(chunk session.Chunk, final bool) {
	if !p.dumpAudio || len(chunk.PCM) == 0 {
		return
	}

	path, err := debugFilePath(describeChunk(chunk, final), "wav")
	if err != nil {
		p.logWarn("unable to create debug audio dump", "error", err.Error())
		return
	}
	if err := audio.WriteWAVFile(path, chunk.PCM, audio.SampleRate, audio.Channels); err != nil {
		p.logWarn("unable to write debug audio dump", "path", path, "error", err.Error())
		return
	}
	p.logDebug("debug audio dumped", "path", path, "bytes", len(chunk.PCM))
}

// debugFilePath returns a timestamped artifact path under state/earworm/debug.
func debugFilePath(prefix string, extension string) (string, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return "", err
	}
	debugDir := filepath.Join(stateDir, "earworm", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	return filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension)), nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}
