package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// SocketName is the owner socket file under $XDG_RUNTIME_DIR.
const SocketName = "earworm.sock"

const acquireBackoff = 25 * time.Millisecond

var ErrAlreadyRunning = errors.New("earworm session already running")

func RuntimeSocketPath() (string, error) {
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, SocketName), nil
}

// Acquire binds the owner socket at path. A responsive owner yields
// ErrAlreadyRunning; a socket file nobody serves is unlinked and the bind
// retried up to retries more times.
func Acquire(ctx context.Context, path string, probeTimeout time.Duration, retries int) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
				_ = listener.Close()
				return nil, fmt.Errorf("restrict socket %s: %w", path, chmodErr)
			}
			return listener, nil
		}
		if !isAddrInUse(err) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		lastErr = err

		if err := reclaimStale(ctx, path, probeTimeout); err != nil {
			return nil, err
		}

		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * acquireBackoff):
			}
		}
	}

	return nil, fmt.Errorf("acquire socket %s after %d retries: %w", path, retries, lastErr)
}

// reclaimStale removes path only when a probe proves nothing serves it.
func reclaimStale(ctx context.Context, path string, probeTimeout time.Duration) error {
	alive, err := Probe(ctx, path, probeTimeout)
	if alive {
		return ErrAlreadyRunning
	}
	if err != nil {
		return fmt.Errorf("probe existing socket %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}

func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.EADDRINUSE) || strings.Contains(err.Error(), "address already in use")
}
