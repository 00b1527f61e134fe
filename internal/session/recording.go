package session

import (
	"context"
	"time"

	"github.com/rbright/earworm/internal/fsm"
	"github.com/rbright/earworm/internal/history"
	"github.com/rbright/earworm/internal/recognize"
)

const (
	statusListening   = "Listening..."
	statusIdentifying = "Identifying..."
	statusConfident   = "Confident result found"
	statusNoMatch     = "No match found"
	statusCancelled   = "Cancelled"
)

// boundaryLoop is the per-session chunk timer plus its ordered result queue.
type boundaryLoop struct {
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan pendingChunk
}

type pendingChunk struct {
	chunk  Chunk
	result chan chunkResult
}

type chunkResult struct {
	outcome Outcome
	err     error
}

func newBoundaryLoop() *boundaryLoop {
	ctx, cancel := context.WithCancel(context.Background())
	return &boundaryLoop{
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan pendingChunk, 16),
	}
}

// halt stops the timer and cancels in-flight non-final requests. Callers hold c.mu.
func (l *boundaryLoop) halt() {
	l.cancel()
	close(l.done)
}

// Start validates credentials, opens the microphone, and begins chunk 1 of a new session.
func (c *Controller) Start(ctx context.Context) error {
	if c.State().Active() {
		return ErrAlreadyListening
	}
	if err := c.credentials(); err != nil {
		if recognize.KindOf(err) != recognize.KindMissingCredentials {
			err = recognize.Wrap(recognize.ErrMissingCredentials, err)
		}
		c.recordFailure(ctx, err, false)
		return err
	}

	if err := c.transition(fsm.EventStart); err != nil {
		if c.State().Active() {
			return ErrAlreadyListening
		}
		return err
	}
	c.indicator.ShowListening(ctx)

	recorder, err := c.startRecorder(ctx)
	if err != nil {
		if recognize.KindOf(err) == "" {
			err = recognize.Wrap(recognize.ErrRecordingStartFailed, err)
		}
		c.recordFailure(ctx, err, true)
		return err
	}

	c.mu.Lock()
	c.sessionID++
	id := c.sessionID
	c.stopping = false
	c.recorder = recorder
	c.resetTransientLocked()
	c.chunkIndex = 1
	c.status = statusListening
	loop := newBoundaryLoop()
	c.loop = loop
	c.mu.Unlock()

	go c.runBoundaries(id, loop)
	go c.applyInOrder(id, loop)

	c.logInfo("session started", "session_id", id, "chunk_interval_ms", c.chunkInterval.Milliseconds())
	c.publish()
	return nil
}

// Stop finalizes the current chunk and runs the final pass synchronously.
// It is a no-op when nothing is recording or a stop is already in progress.
func (c *Controller) Stop(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.recorder == nil || c.stopping {
		c.mu.Unlock()
		return Outcome{}, nil
	}
	c.stopping = true
	c.sessionID++
	id := c.sessionID
	recorder := c.recorder
	c.recorder = nil
	index := c.chunkIndex
	c.loop.halt()
	c.loop = nil
	c.status = statusIdentifying
	_ = c.transitionLocked(fsm.EventStop)
	c.mu.Unlock()

	c.indicator.ShowIdentifying(ctx)
	c.publish()
	startedAt := time.Now()

	pcm, err := recorder.Stop()
	c.indicator.CueStop(context.Background())
	if err != nil {
		err = recognize.Wrap(recognize.ErrRecordingStopFailed, err)
		c.recordFailure(ctx, err, true)
		return Outcome{}, err
	}
	if len(pcm) == 0 {
		c.recordFailure(ctx, recognize.ErrNoAudioCaptured, true)
		return Outcome{}, recognize.ErrNoAudioCaptured
	}

	outcome, err := c.processor.Process(ctx, Chunk{SessionID: id, Index: index, PCM: pcm}, true)

	c.mu.Lock()
	confident := false
	if err == nil {
		confident = c.observeLocked(outcome.Observations)
	}
	c.transcript = outcome.Transcript
	c.normalized = outcome.Normalized
	if outcome.History != nil {
		c.rememberLocked(*outcome.History)
	}
	c.mu.Unlock()

	if err != nil {
		c.recordFailure(ctx, err, true)
		c.logWarn("session failed",
			"session_id", id,
			"error_kind", string(recognize.KindOf(err)),
			"error", err.Error(),
			"final_ms", time.Since(startedAt).Milliseconds(),
		)
		return outcome, err
	}

	c.mu.Lock()
	c.stopping = false
	_, best := c.aggregator.Snapshot()
	if best == nil {
		c.status = statusNoMatch
	} else if !confident {
		c.status = ""
	}
	_ = c.transitionLocked(fsm.EventIdentified)
	c.mu.Unlock()

	if best != nil {
		if err := c.commit.Commit(ctx, best.Result); err != nil {
			c.logWarn("result dispatch failed", "error", err.Error())
		}
		c.indicator.CueMatch(context.Background())
		c.indicator.ShowConfident(ctx, best.Result.Label())
	}

	c.logInfo("session complete",
		"session_id", id,
		"chunks", index,
		"matched", best != nil,
		"final_ms", time.Since(startedAt).Milliseconds(),
	)
	c.publish()
	return outcome, nil
}

// Cancel stops capture and discards the session without a final pass.
func (c *Controller) Cancel(ctx context.Context) {
	c.mu.Lock()
	if c.recorder == nil || c.stopping {
		c.mu.Unlock()
		return
	}
	c.sessionID++
	id := c.sessionID
	recorder := c.recorder
	c.recorder = nil
	c.loop.halt()
	c.loop = nil
	c.resetTransientLocked()
	c.status = statusCancelled
	_ = c.transitionLocked(fsm.EventCancel)
	c.mu.Unlock()

	recorder.Close()
	c.indicator.CueCancel(ctx)
	c.logInfo("session cancelled", "session_id", id)
	c.publish()
}

// Clear resets transient results and the error message while idle.
func (c *Controller) Clear() error {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.resetTransientLocked()
	c.mu.Unlock()

	c.publish()
	return nil
}

// runBoundaries fires the chunk timer until the session halts.
func (c *Controller) runBoundaries(id uint64, loop *boundaryLoop) {
	ticker := time.NewTicker(c.chunkInterval)
	defer ticker.Stop()
	defer close(loop.queue)

	for {
		select {
		case <-loop.done:
			return
		case <-ticker.C:
			c.cutChunk(id, loop)
		}
	}
}

// cutChunk swaps the capture buffer and dispatches a non-final pass for the finished segment.
func (c *Controller) cutChunk(id uint64, loop *boundaryLoop) {
	c.mu.Lock()
	if c.sessionID != id || c.stopping || c.recorder == nil {
		c.mu.Unlock()
		return
	}
	chunk := Chunk{SessionID: id, Index: c.chunkIndex, PCM: c.recorder.Cut()}
	c.chunkIndex++
	c.mu.Unlock()

	if len(chunk.PCM) == 0 {
		c.logDebug("chunk empty", "session_id", id, "chunk", chunk.Index)
		return
	}

	pending := pendingChunk{chunk: chunk, result: make(chan chunkResult, 1)}
	go func() {
		outcome, err := c.processor.Process(loop.ctx, chunk, false)
		pending.result <- chunkResult{outcome: outcome, err: err}
	}()
	c.logInfo("chunk dispatched", "session_id", id, "chunk", chunk.Index, "bytes", len(chunk.PCM))

	select {
	case loop.queue <- pending:
	case <-loop.done:
	}
}

// applyInOrder applies non-final outcomes in dispatch order.
func (c *Controller) applyInOrder(id uint64, loop *boundaryLoop) {
	for pending := range loop.queue {
		res := <-pending.result
		c.applyChunk(id, pending.chunk, res)
	}
}

func (c *Controller) applyChunk(id uint64, chunk Chunk, res chunkResult) {
	c.mu.Lock()
	if c.sessionID != id {
		c.mu.Unlock()
		c.logInfo("chunk discarded", "session_id", id, "chunk", chunk.Index)
		return
	}
	if res.err != nil {
		c.mu.Unlock()
		c.logWarn("chunk failed", "session_id", id, "chunk", chunk.Index, "error", res.err.Error())
		return
	}
	confident := c.observeLocked(res.outcome.Observations)
	var label string
	if _, best := c.aggregator.Snapshot(); best != nil {
		label = best.Result.Label()
	}
	c.mu.Unlock()

	c.logInfo("chunk applied", "session_id", id, "chunk", chunk.Index, "observations", len(res.outcome.Observations))
	if confident && label != "" {
		c.indicator.ShowConfident(context.Background(), label)
	}
	c.publish()
}

// observeLocked feeds observations to the aggregator and reports whether the top became confident.
func (c *Controller) observeLocked(observations []Observation) bool {
	confident := false
	for _, obs := range observations {
		update := c.aggregator.Observe(obs.Result, obs.Confidence)
		if update.Confident {
			confident = true
		}
	}
	if confident {
		c.status = statusConfident
	}
	return confident
}

// recordFailure stores err as the single visible error and returns the controller to idle.
func (c *Controller) recordFailure(ctx context.Context, err error, reset bool) {
	c.mu.Lock()
	c.lastErr = err
	c.stopping = false
	c.status = ""
	if reset {
		c.toErrorAndResetLocked()
	}
	c.mu.Unlock()

	c.indicator.ShowError(ctx, recognize.Message(err))
	c.publish()
}

func (c *Controller) resetTransientLocked() {
	c.transcript = ""
	c.normalized = ""
	c.chunkIndex = 0
	c.status = ""
	c.lastErr = nil
	c.aggregator.Reset()
}

func (c *Controller) rememberLocked(entry history.Entry) {
	c.history = append([]history.Entry{entry}, c.history...)
	if len(c.history) > maxRecentHistory {
		c.history = c.history[:maxRecentHistory]
	}
}
