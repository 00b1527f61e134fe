package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rbright/earworm/internal/fsm"
	"github.com/rbright/earworm/internal/history"
	"github.com/rbright/earworm/internal/ipc"
	"github.com/rbright/earworm/internal/recognize"
)

var hello = recognize.SongResult{
	Title:        "Hello",
	Artist:       "Adele",
	DisplayTitle: "Hello by Adele",
	URL:          "https://genius.com/Adele-hello-lyrics",
	Source:       recognize.SourceLyrics,
}

func runInBackground(ctx context.Context, ctrl *Controller) <-chan Result {
	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()
	return resultCh
}

func TestControllerStopRunsFinalPassAndCommitsBest(t *testing.T) {
	var committed atomic.Value
	ind := &fakeIndicator{}
	rec := &fakeRecorder{final: []byte{1, 2, 3, 4}}
	entry := history.NewEntry(0, "Hello, it's me, I was wondering", "Hello its me I was wondering", &hello)

	ctrl := NewController(Options{
		Processor: ProcessFunc(func(_ context.Context, chunk Chunk, final bool) (Outcome, error) {
			if !final {
				t.Errorf("unexpected non-final pass for chunk %d", chunk.Index)
			}
			if len(chunk.PCM) != 4 {
				t.Errorf("expected final PCM to be handed over, got %d bytes", len(chunk.PCM))
			}
			return Outcome{
				Observations: []Observation{{Result: hello, Confidence: 0.52}},
				Transcript:   entry.Transcript,
				Normalized:   entry.Normalized,
				Final:        &hello,
				History:      &entry,
			}, nil
		}),
		StartRecorder: recorderFactory(rec),
		Indicator:     ind,
		Committer: CommitFunc(func(_ context.Context, result recognize.SongResult) error {
			committed.Store(result.Title)
			return nil
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resultCh := runInBackground(ctx, ctrl)

	waitForState(t, ctrl, fsm.StateListening)
	if resp := ctrl.Handle(ctx, ipc.Request{Command: "stop"}); !resp.OK {
		t.Fatalf("stop response not OK: %+v", resp)
	}

	result := <-resultCh
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.State != fsm.StateIdle {
		t.Fatalf("expected idle, got %s", result.State)
	}
	if result.Best == nil || result.Best.Result.Title != "Hello" {
		t.Fatalf("expected Hello as best result, got %+v", result.Best)
	}
	if got := committed.Load(); got != "Hello" {
		t.Fatalf("expected committed Hello, got %v", got)
	}
	if ind.matchCues.Load() != 1 || ind.stopCues.Load() != 1 {
		t.Fatalf("unexpected cues: match=%d stop=%d", ind.matchCues.Load(), ind.stopCues.Load())
	}
	if rec.stops.Load() != 1 {
		t.Fatalf("expected recorder stop once, got %d", rec.stops.Load())
	}

	snapshot := ctrl.Snapshot()
	if snapshot.Transcript != entry.Transcript || snapshot.Normalized != entry.Normalized {
		t.Fatalf("unexpected transcript in snapshot: %+v", snapshot)
	}
	if len(snapshot.History) != 1 || snapshot.History[0].ID != entry.ID {
		t.Fatalf("expected history entry in snapshot, got %+v", snapshot.History)
	}
}

func TestControllerStopWithoutAudioFails(t *testing.T) {
	var processed atomic.Int32
	ind := &fakeIndicator{}
	ctrl := NewController(Options{
		Processor: ProcessFunc(func(context.Context, Chunk, bool) (Outcome, error) {
			processed.Add(1)
			return Outcome{}, nil
		}),
		StartRecorder: recorderFactory(&fakeRecorder{}),
		Indicator:     ind,
	})

	ctx := context.Background()
	resultCh := runInBackground(ctx, ctrl)
	waitForState(t, ctrl, fsm.StateListening)
	ctrl.Handle(ctx, ipc.Request{Command: "toggle"})

	result := <-resultCh
	if !errors.Is(result.Err, recognize.ErrNoAudioCaptured) {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if processed.Load() != 0 {
		t.Fatalf("expected no pipeline pass without audio")
	}
	if state := ctrl.State(); state != fsm.StateIdle {
		t.Fatalf("expected idle after error reset, got %s", state)
	}
	if ind.LastError() != recognize.ErrNoAudioCaptured.Message {
		t.Fatalf("unexpected indicator error %q", ind.LastError())
	}
}

func TestControllerStopRecorderFailure(t *testing.T) {
	rec := &fakeRecorder{stopErr: errors.New("stream vanished")}
	ctrl := NewController(Options{StartRecorder: recorderFactory(rec)})

	ctx := context.Background()
	resultCh := runInBackground(ctx, ctrl)
	waitForState(t, ctrl, fsm.StateListening)
	ctrl.Handle(ctx, ipc.Request{Command: "stop"})

	result := <-resultCh
	if !errors.Is(result.Err, recognize.ErrRecordingStopFailed) {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if ctrl.Snapshot().ErrorKind != recognize.KindRecordingStopFailed {
		t.Fatalf("expected error kind in snapshot, got %q", ctrl.Snapshot().ErrorKind)
	}
}

func TestControllerFinalPassErrorStillStopsCapture(t *testing.T) {
	var committed atomic.Bool
	ind := &fakeIndicator{}
	rec := &fakeRecorder{final: []byte{1, 2}}
	ctrl := NewController(Options{
		Processor: ProcessFunc(func(context.Context, Chunk, bool) (Outcome, error) {
			return Outcome{Transcript: "ok"}, recognize.ErrTranscriptTooShort
		}),
		StartRecorder: recorderFactory(rec),
		Indicator:     ind,
		Committer: CommitFunc(func(context.Context, recognize.SongResult) error {
			committed.Store(true)
			return nil
		}),
	})

	ctx := context.Background()
	resultCh := runInBackground(ctx, ctrl)
	waitForState(t, ctrl, fsm.StateListening)
	ctrl.Handle(ctx, ipc.Request{Command: "stop"})

	result := <-resultCh
	if !errors.Is(result.Err, recognize.ErrTranscriptTooShort) {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if rec.stops.Load() != 1 {
		t.Fatalf("expected capture stopped once, got %d", rec.stops.Load())
	}
	if committed.Load() {
		t.Fatalf("expected no commit after failed final pass")
	}
	if ind.matchCues.Load() != 0 {
		t.Fatalf("did not expect match cue when the final pass fails")
	}
	snapshot := ctrl.Snapshot()
	if snapshot.State != fsm.StateIdle || snapshot.Error == "" || snapshot.Transcript != "ok" {
		t.Fatalf("unexpected snapshot after failure: %+v", snapshot)
	}
}

func TestRunContextCancelled(t *testing.T) {
	ind := &fakeIndicator{}
	rec := &fakeRecorder{}
	ctrl := NewController(Options{StartRecorder: recorderFactory(rec), Indicator: ind})

	ctx, cancel := context.WithCancel(context.Background())
	resultCh := runInBackground(ctx, ctrl)

	waitForState(t, ctrl, fsm.StateListening)
	cancel()

	result := <-resultCh
	if !errors.Is(result.Err, context.Canceled) {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.State != fsm.StateIdle {
		t.Fatalf("expected idle, got %s", result.State)
	}
	if ind.cancelCues.Load() != 1 || rec.closes.Load() != 1 {
		t.Fatalf("expected cancel cue and recorder close, got cue=%d close=%d", ind.cancelCues.Load(), rec.closes.Load())
	}
	if result.Cancelled {
		t.Fatalf("context cancellation is not a user cancel")
	}
}

func TestRunUserCancel(t *testing.T) {
	var processed atomic.Int32
	rec := &fakeRecorder{final: []byte{1, 2}}
	ctrl := NewController(Options{
		Processor: ProcessFunc(func(context.Context, Chunk, bool) (Outcome, error) {
			processed.Add(1)
			return Outcome{}, nil
		}),
		StartRecorder: recorderFactory(rec),
	})

	ctx := context.Background()
	resultCh := runInBackground(ctx, ctrl)
	waitForState(t, ctrl, fsm.StateListening)
	if resp := ctrl.Handle(ctx, ipc.Request{Command: "cancel"}); !resp.OK {
		t.Fatalf("cancel response not OK: %+v", resp)
	}

	result := <-resultCh
	if !result.Cancelled || result.Err != nil {
		t.Fatalf("unexpected cancel result: %+v", result)
	}
	if processed.Load() != 0 || rec.stops.Load() != 0 || rec.closes.Load() != 1 {
		t.Fatalf("cancel must close capture without a final pass")
	}
	if ctrl.Snapshot().Status != statusCancelled {
		t.Fatalf("unexpected status %q", ctrl.Snapshot().Status)
	}
}
