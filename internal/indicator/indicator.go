// Package indicator handles visual state notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/earworm/internal/config"
	"github.com/rbright/earworm/internal/hypr"
)

// Notifier is the concrete session indicator. It routes notifications via
// Hyprland or the desktop notification service based on config backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu             sync.Mutex
	focusedMonitor string
	soundMu        sync.Mutex
}

// New creates an indicator from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
	}
}

// ShowListening signals capture start and emits the start cue.
func (n *Notifier) ShowListening(ctx context.Context) {
	n.playCue(cueStart)
	if !n.cfg.Enable {
		return
	}
	n.ensureFocusedMonitor(ctx)
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 1, 300000, "rgb(89b4fa)", n.messages.listening)
	})
}

// ShowIdentifying signals the final recognition pass.
func (n *Notifier) ShowIdentifying(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 1, 300000, "rgb(cba6f7)", n.messages.identifying)
	})
}

// ShowConfident announces a song the session is confident about.
func (n *Notifier) ShowConfident(ctx context.Context, song string) {
	if !n.cfg.Enable {
		return
	}
	text := n.messages.confident(song)
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 5, 6000, "rgb(a6e3a1)", text)
	})
}

// ShowError displays an error-state indicator message.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if !n.cfg.Enable {
		return
	}
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 3, timeout, "rgb(f38ba8)", text)
	})
}

// CueStop emits the stop cue.
func (n *Notifier) CueStop(context.Context) {
	n.playCue(cueStop)
}

// CueMatch emits the song-found cue.
func (n *Notifier) CueMatch(context.Context) {
	n.playCue(cueMatch)
}

// CueCancel emits the cancel cue.
func (n *Notifier) CueCancel(context.Context) {
	n.playCue(cueCancel)
}

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// FocusedMonitor returns the monitor captured when listening began.
func (n *Notifier) FocusedMonitor() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.focusedMonitor
}

// ensureFocusedMonitor resolves and caches the focused monitor once.
func (n *Notifier) ensureFocusedMonitor(ctx context.Context) {
	if n.desktop() {
		return
	}

	n.mu.Lock()
	alreadySet := n.focusedMonitor != ""
	n.mu.Unlock()
	if alreadySet {
		return
	}

	monitor, err := hypr.QueryFocusedMonitor(ctx)
	if err != nil {
		n.log("indicator focused monitor query failed", err)
		return
	}

	n.mu.Lock()
	n.focusedMonitor = monitor
	n.mu.Unlock()
}

func (n *Notifier) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

// notify dispatches indicator output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if n.desktop() {
		return n.notifyDesktop(text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend. Desktop
// notifications expire on their own.
func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktop() {
		return nil
	}
	return hypr.DismissNotify(ctx)
}

func (n *Notifier) notifyDesktop(text string) error {
	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "earworm"
	}
	return desktopNotify(appName, text)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := emitCue(ctx, kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
