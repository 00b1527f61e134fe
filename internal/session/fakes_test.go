package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/earworm/internal/fsm"
)

type fakeIndicator struct {
	listening   atomic.Int32
	identifying atomic.Int32
	confident   atomic.Int32
	errors      atomic.Int32
	stopCues    atomic.Int32
	matchCues   atomic.Int32
	cancelCues  atomic.Int32

	mu        sync.Mutex
	lastError string
}

func (f *fakeIndicator) ShowListening(context.Context)         { f.listening.Add(1) }
func (f *fakeIndicator) ShowIdentifying(context.Context)       { f.identifying.Add(1) }
func (f *fakeIndicator) ShowConfident(context.Context, string) { f.confident.Add(1) }
func (f *fakeIndicator) ShowError(_ context.Context, msg string) {
	f.errors.Add(1)
	f.mu.Lock()
	f.lastError = msg
	f.mu.Unlock()
}
func (f *fakeIndicator) CueStop(context.Context)   { f.stopCues.Add(1) }
func (f *fakeIndicator) CueMatch(context.Context)  { f.matchCues.Add(1) }
func (f *fakeIndicator) CueCancel(context.Context) { f.cancelCues.Add(1) }
func (f *fakeIndicator) Hide(context.Context)      {}

func (f *fakeIndicator) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastError
}

type fakeRecorder struct {
	mu       sync.Mutex
	segments [][]byte
	final    []byte
	stopErr  error

	cuts   atomic.Int32
	stops  atomic.Int32
	closes atomic.Int32
}

func (r *fakeRecorder) Cut() []byte {
	r.cuts.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.segments) == 0 {
		return nil
	}
	next := r.segments[0]
	r.segments = r.segments[1:]
	return next
}

func (r *fakeRecorder) Stop() ([]byte, error) {
	r.stops.Add(1)
	return r.final, r.stopErr
}

func (r *fakeRecorder) Close() {
	r.closes.Add(1)
}

func recorderFactory(rec *fakeRecorder) StartRecorderFunc {
	return func(context.Context) (Recorder, error) {
		return rec, nil
	}
}

func waitForState(t *testing.T, ctrl *Controller, desired fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == desired {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}
