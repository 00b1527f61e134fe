package session

import (
	"context"
	"errors"
	"time"

	"github.com/rbright/earworm/internal/candidates"
	"github.com/rbright/earworm/internal/fsm"
	"github.com/rbright/earworm/internal/history"
	"github.com/rbright/earworm/internal/recognize"
)

// DefaultChunkInterval is the boundary timer period while listening.
const DefaultChunkInterval = 8000 * time.Millisecond

var (
	// ErrAlreadyListening reports a start while a session is active.
	ErrAlreadyListening = errors.New("already listening")
	// ErrNotIdle reports a clear while a session is active.
	ErrNotIdle = errors.New("cannot clear while a session is active")
)

// Chunk is one finalized audio segment owned by a session.
type Chunk struct {
	SessionID uint64
	Index     int
	PCM       []byte
}

// Observation is one recognition result with the confidence it should carry.
type Observation struct {
	Result     recognize.SongResult
	Confidence float64
}

// Outcome is everything one pipeline pass produced.
type Outcome struct {
	Observations []Observation
	Transcript   string
	Normalized   string
	Final        *recognize.SongResult
	History      *history.Entry
}

// Processor runs one chunk through recognition.
type Processor interface {
	Process(ctx context.Context, chunk Chunk, final bool) (Outcome, error)
}

// ProcessFunc adapts a function to the Processor interface.
type ProcessFunc func(context.Context, Chunk, bool) (Outcome, error)

func (f ProcessFunc) Process(ctx context.Context, chunk Chunk, final bool) (Outcome, error) {
	return f(ctx, chunk, final)
}

// Recorder is a live capture whose buffer can be cut without gaps.
type Recorder interface {
	Cut() []byte
	Stop() ([]byte, error)
	Close()
}

// StartRecorderFunc opens the microphone.
type StartRecorderFunc func(context.Context) (Recorder, error)

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowListening(context.Context)
	ShowIdentifying(context.Context)
	ShowConfident(context.Context, string)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueMatch(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context)         {}
func (noopIndicator) ShowIdentifying(context.Context)       {}
func (noopIndicator) ShowConfident(context.Context, string) {}
func (noopIndicator) ShowError(context.Context, string)     {}
func (noopIndicator) CueStop(context.Context)               {}
func (noopIndicator) CueMatch(context.Context)              {}
func (noopIndicator) CueCancel(context.Context)             {}
func (noopIndicator) Hide(context.Context)                  {}

// Snapshot is the read model handed to presentation surfaces.
type Snapshot struct {
	State      fsm.State              `json:"state"`
	SessionID  uint64                 `json:"session_id"`
	Chunk      int                    `json:"chunk"`
	Status     string                 `json:"status,omitempty"`
	Error      string                 `json:"error,omitempty"`
	ErrorKind  recognize.Kind         `json:"error_kind,omitempty"`
	Transcript string                 `json:"transcript,omitempty"`
	Normalized string                 `json:"normalized,omitempty"`
	Candidates []candidates.Candidate `json:"candidates"`
	Best       *candidates.Best       `json:"best,omitempty"`
	History    []history.Entry        `json:"history,omitempty"`
}

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	RunID      string
	SessionID  uint64
	State      fsm.State
	Best       *candidates.Best
	Candidates []candidates.Candidate
	Transcript string
	Normalized string
	Cancelled  bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}
