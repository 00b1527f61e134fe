// Package candidates fuses recognition observations into a ranked list and a promoted best answer.
package candidates

import (
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/rbright/earworm/internal/recognize"
)

const (
	// MaxCandidates bounds the ranked list.
	MaxCandidates = 5
	// ReinforceStep is added when an identity is observed again.
	ReinforceStep = 0.03
	// ReinforceCap keeps reinforced confidence below certainty.
	ReinforceCap = 0.98
	// PromotionMargin is the hysteresis required to replace the best result.
	PromotionMargin = 0.05
	// ConfidentThreshold marks a top candidate worth announcing.
	ConfidentThreshold = 0.90
)

// Candidate is the tracked entry for one distinct song identity.
type Candidate struct {
	Key        string               `json:"key"`
	Title      string               `json:"title"`
	Artist     string               `json:"artist"`
	Source     recognize.Source     `json:"source"`
	Confidence float64              `json:"confidence"`
	Result     recognize.SongResult `json:"result"`
}

// Best is the currently promoted answer.
type Best struct {
	Result     recognize.SongResult `json:"result"`
	Confidence float64              `json:"confidence"`
}

// Update describes aggregator state right after one observation.
type Update struct {
	Candidates []Candidate
	Best       *Best
	Promoted   bool
	Confident  bool
}

// Aggregator is safe for concurrent use; observations are applied one at a time.
type Aggregator struct {
	logger *slog.Logger

	mu         sync.Mutex
	candidates []Candidate
	best       *Best
}

// New constructs an empty aggregator.
func New(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Observe folds one result into the ranked list and applies promotion hysteresis.
func (a *Aggregator) Observe(result recognize.SongResult, confidence float64) Update {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := result.Key()
	next := Candidate{
		Key:        key,
		Title:      result.Title,
		Artist:     result.Artist,
		Source:     result.Source,
		Confidence: confidence,
		Result:     result,
	}

	replaced := false
	for i, existing := range a.candidates {
		if existing.Key != key {
			continue
		}
		next.Confidence = math.Min(ReinforceCap, math.Max(existing.Confidence, confidence)+ReinforceStep)
		a.candidates[i] = next
		replaced = true
		break
	}
	if !replaced {
		a.candidates = append(a.candidates, next)
	}

	sort.SliceStable(a.candidates, func(i, j int) bool {
		return a.candidates[i].Confidence > a.candidates[j].Confidence
	})
	if len(a.candidates) > MaxCandidates {
		a.candidates = a.candidates[:MaxCandidates]
	}

	top := a.candidates[0]
	update := Update{Confident: top.Confidence >= ConfidentThreshold}
	if a.shouldPromote(top.Confidence) {
		a.best = &Best{Result: top.Result, Confidence: top.Confidence}
		update.Promoted = true
		a.logInfo("candidate promoted",
			"key", top.Key,
			"source", string(top.Source),
			"confidence", top.Confidence,
		)
	}
	if update.Confident {
		a.logInfo("confident result", "key", top.Key, "confidence", top.Confidence)
	}

	update.Candidates = a.copyCandidates()
	update.Best = a.copyBest()
	return update
}

// Snapshot returns copies of the ranked list and the promoted best result.
func (a *Aggregator) Snapshot() ([]Candidate, *Best) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copyCandidates(), a.copyBest()
}

// Reset clears all tracked candidates and the promoted best result.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.candidates = nil
	a.best = nil
}

// shouldPromote compares in basis points so float drift cannot decide ties at the margin.
func (a *Aggregator) shouldPromote(top float64) bool {
	previous := 0.0
	if a.best != nil {
		previous = a.best.Confidence
	}
	return basisPoints(top)-basisPoints(previous) > basisPoints(PromotionMargin)
}

func basisPoints(v float64) int64 {
	return int64(math.Round(v * 10000))
}

func (a *Aggregator) copyCandidates() []Candidate {
	out := make([]Candidate, len(a.candidates))
	copy(out, a.candidates)
	return out
}

func (a *Aggregator) copyBest() *Best {
	if a.best == nil {
		return nil
	}
	best := *a.best
	return &best
}

func (a *Aggregator) logInfo(msg string, args ...any) {
	if a.logger == nil {
		return
	}
	a.logger.Info(msg, args...)
}
