// Package session owns listening sessions: chunk scheduling, stale-result discard, and the IPC surface.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/earworm/internal/candidates"
	"github.com/rbright/earworm/internal/fsm"
	"github.com/rbright/earworm/internal/history"
	"github.com/rbright/earworm/internal/ipc"
	"github.com/rbright/earworm/internal/recognize"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

const maxRecentHistory = 20

// Options wires a Controller's collaborators. Nil fields fall back to no-ops.
type Options struct {
	Logger        *slog.Logger
	Processor     Processor
	StartRecorder StartRecorderFunc
	Credentials   func() error
	Indicator     Indicator
	Committer     Committer
	Publisher     Publisher
	ChunkInterval time.Duration
}

// Controller orchestrates session state transitions and side effects.
type Controller struct {
	logger        *slog.Logger
	processor     Processor
	startRecorder StartRecorderFunc
	credentials   func() error
	indicator     Indicator
	commit        Committer
	publisher     Publisher
	chunkInterval time.Duration
	aggregator    *candidates.Aggregator

	mu         sync.RWMutex
	state      fsm.State
	sessionID  uint64
	stopping   bool
	recorder   Recorder
	loop       *boundaryLoop
	chunkIndex int
	transcript string
	normalized string
	status     string
	lastErr    error
	history    []history.Entry

	publishMu sync.Mutex

	actions chan action
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(opts Options) *Controller {
	c := &Controller{
		logger:        opts.Logger,
		processor:     opts.Processor,
		startRecorder: opts.StartRecorder,
		credentials:   opts.Credentials,
		indicator:     opts.Indicator,
		commit:        opts.Committer,
		publisher:     opts.Publisher,
		chunkInterval: opts.ChunkInterval,
		aggregator:    candidates.New(opts.Logger),
		state:         fsm.StateIdle,
		actions:       make(chan action, 1),
	}
	if c.processor == nil {
		c.processor = ProcessFunc(func(context.Context, Chunk, bool) (Outcome, error) { return Outcome{}, nil })
	}
	if c.startRecorder == nil {
		c.startRecorder = func(context.Context) (Recorder, error) {
			return nil, recognize.Wrapf(recognize.ErrRecordingStartFailed, "no audio recorder configured", nil)
		}
	}
	if c.credentials == nil {
		c.credentials = func() error { return nil }
	}
	if c.indicator == nil {
		c.indicator = noopIndicator{}
	}
	if c.commit == nil {
		c.commit = CommitFunc(func(context.Context, recognize.SongResult) error { return nil })
	}
	if c.chunkInterval <= 0 {
		c.chunkInterval = DefaultChunkInterval
	}
	return c
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns the presentation read model.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	ranked, best := c.aggregator.Snapshot()
	snapshot := Snapshot{
		State:      c.state,
		SessionID:  c.sessionID,
		Chunk:      c.chunkIndex,
		Status:     c.status,
		Transcript: c.transcript,
		Normalized: c.normalized,
		Candidates: ranked,
		Best:       best,
		History:    append([]history.Entry(nil), c.history...),
	}
	if c.lastErr != nil {
		snapshot.Error = recognize.Message(c.lastErr)
		snapshot.ErrorKind = recognize.KindOf(c.lastErr)
	}
	return snapshot
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitionLocked(event)
}

func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run executes one owner lifecycle from start to stop/cancel/failure completion.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{RunID: uuid.NewString(), StartedAt: time.Now()}
	finish := func() Result {
		snapshot := c.Snapshot()
		result.SessionID = snapshot.SessionID
		result.State = snapshot.State
		result.Best = snapshot.Best
		result.Candidates = snapshot.Candidates
		result.Transcript = snapshot.Transcript
		result.Normalized = snapshot.Normalized
		result.FinishedAt = time.Now()
		return result
	}

	if err := c.Start(ctx); err != nil {
		result.Err = err
		return finish()
	}
	c.logInfo("run started", "run_id", result.RunID)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	select {
	case <-ctx.Done():
		c.Cancel(context.Background())
		result.Err = ctx.Err()
		return finish()
	case a := <-c.actions:
		switch a {
		case actionCancel:
			c.Cancel(context.Background())
			result.Cancelled = true
			return finish()
		case actionStop:
			_, err := c.Stop(ctx)
			result.Err = err
			return finish()
		default:
			c.Cancel(context.Background())
			result.Err = fmt.Errorf("unknown action %d", a)
			return finish()
		}
	}
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.statusResponse()
	case ipc.CommandToggle:
		return c.requestStop("toggle")
	case ipc.CommandStop:
		return c.requestStop("stop")
	case ipc.CommandCancel:
		return c.requestCancel()
	case ipc.CommandClear:
		if err := c.Clear(); err != nil {
			return ipc.Response{OK: false, State: string(c.State()), Error: err.Error()}
		}
		return ipc.Response{OK: true, State: string(c.State()), Message: "cleared"}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) statusResponse() ipc.Response {
	snapshot := c.Snapshot()
	resp := ipc.Response{OK: true, State: string(snapshot.State), Message: snapshot.Status}
	if resp.Message == "" {
		resp.Message = "status"
	}
	if snapshot.Best != nil {
		resp.Song = snapshot.Best.Result.Label()
		resp.URL = snapshot.Best.Result.URL
		resp.Confidence = snapshot.Best.Confidence
	}
	if snapshot.Error != "" {
		resp.Error = snapshot.Error
	}
	return resp
}

// requestStop enqueues a stop action when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	state := c.State()
	if state == fsm.StateIdentifying {
		return ipc.Response{OK: false, State: string(state), Error: "already identifying"}
	}
	if state != fsm.StateListening {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state == fsm.StateIdentifying {
		return ipc.Response{OK: false, State: string(state), Error: "cannot cancel while identifying"}
	}
	if state != fsm.StateListening {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

// toErrorAndResetLocked transitions to error and back to idle best-effort.
func (c *Controller) toErrorAndResetLocked() {
	_ = c.transitionLocked(fsm.EventFail)
	_ = c.transitionLocked(fsm.EventReset)
}

// publish snapshots and delivers under publishMu so subscribers never
// receive an older snapshot after a newer one.
func (c *Controller) publish() {
	if c.publisher == nil {
		return
	}
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	c.publisher.Publish(c.Snapshot())
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(msg, args...)
}

func (c *Controller) logDebug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}
