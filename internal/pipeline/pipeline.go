// Package pipeline runs captured audio chunks through fingerprint, transcription, and lyrics recognition.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/earworm/internal/audio"
	"github.com/rbright/earworm/internal/history"
	"github.com/rbright/earworm/internal/recognize"
	"github.com/rbright/earworm/internal/session"
	"github.com/rbright/earworm/internal/transcript"
)

const (
	// FingerprintConfidence is the fixed confidence of an acoustic match.
	FingerprintConfidence = 0.92
	// MinTranscriptWords is the shortest transcript worth a lyrics search.
	MinTranscriptWords = 4

	lyricsBaseConfidence = 0.4
	lyricsWordBonus      = 0.02
	lyricsBonusCap       = 0.45
	lyricsMaxConfidence  = 0.85
)

// Options wires recognition collaborators into a Pipeline.
type Options struct {
	Fingerprint recognize.FingerprintMatcher
	Transcriber recognize.Transcriber
	Lyrics      recognize.LyricsSearcher
	History     history.Store
	Language    string
	DumpAudio   bool
	Logger      *slog.Logger
}

// Pipeline implements session.Processor.
type Pipeline struct {
	fingerprint recognize.FingerprintMatcher
	transcriber recognize.Transcriber
	lyrics      recognize.LyricsSearcher
	history     history.Store
	language    string
	dumpAudio   bool
	logger      *slog.Logger
}

var _ session.Processor = (*Pipeline)(nil)

// New constructs a pipeline. A nil history store discards entries.
func New(opts Options) *Pipeline {
	store := opts.History
	if store == nil {
		store = history.Discard{}
	}
	language := strings.TrimSpace(opts.Language)
	if language == "" {
		language = "auto"
	}
	return &Pipeline{
		fingerprint: opts.Fingerprint,
		transcriber: opts.Transcriber,
		lyrics:      opts.Lyrics,
		history:     store,
		language:    language,
		dumpAudio:   opts.DumpAudio,
		logger:      opts.Logger,
	}
}

// LyricsConfidence maps a normalized transcript length to lyrics-hit confidence.
func LyricsConfidence(words int) float64 {
	confidence := lyricsBaseConfidence + min(lyricsBonusCap, float64(words)*lyricsWordBonus)
	return max(lyricsBaseConfidence, min(lyricsMaxConfidence, confidence))
}

type fingerprintResult struct {
	result *recognize.SongResult
}

// Process runs one chunk. Non-final passes only consult the fingerprint
// matcher; the final pass adds transcription and, without a fingerprint hit,
// lyrics search.
func (p *Pipeline) Process(ctx context.Context, chunk session.Chunk, final bool) (session.Outcome, error) {
	startedAt := time.Now()
	clip := recognize.Clip{PCM: chunk.PCM, SampleRate: audio.SampleRate, Channels: audio.Channels}
	p.dumpChunk(chunk, final)

	if !final {
		outcome := session.Outcome{}
		if match := p.matchFingerprint(ctx, chunk, clip); match != nil {
			outcome.Observations = []session.Observation{{Result: *match, Confidence: FingerprintConfidence}}
		}
		p.logDebug("chunk processed",
			"session_id", chunk.SessionID,
			"chunk", chunk.Index,
			"matched", len(outcome.Observations) > 0,
			"elapsed_ms", time.Since(startedAt).Milliseconds(),
		)
		return outcome, nil
	}

	fingerprintCh := make(chan fingerprintResult, 1)
	go func() {
		fingerprintCh <- fingerprintResult{result: p.matchFingerprint(ctx, chunk, clip)}
	}()

	text, transcribeErr := p.transcribe(ctx, clip)
	fingerprint := (<-fingerprintCh).result

	// A failed pass reports no observations; only the transcript survives for display.
	outcome := session.Outcome{Transcript: text}
	if transcribeErr != nil {
		return outcome, transcribeErr
	}

	if strings.TrimSpace(text) == "" {
		return outcome, recognize.ErrNoSpeechDetected
	}
	outcome.Normalized = transcript.Normalize(text)
	words := transcript.WordCount(outcome.Normalized)
	if words < MinTranscriptWords {
		return outcome, recognize.ErrTranscriptTooShort
	}

	if fingerprint != nil {
		outcome.Observations = append(outcome.Observations, session.Observation{Result: *fingerprint, Confidence: FingerprintConfidence})
		outcome.Final = fingerprint
	}

	var searchErr error
	if fingerprint == nil {
		confidence := LyricsConfidence(words)
		hit, err := p.searchQueries(ctx, transcript.Queries(outcome.Normalized))
		if err != nil {
			searchErr = err
		} else if hit != nil {
			outcome.Observations = append(outcome.Observations, session.Observation{Result: *hit, Confidence: confidence})
			outcome.Final = hit
		}
	}

	outcome.History = p.appendHistory(ctx, chunk.SessionID, outcome)
	p.logInfo("final pass complete",
		"session_id", chunk.SessionID,
		"words", words,
		"fingerprint_hit", fingerprint != nil,
		"matched", outcome.Final != nil,
		"elapsed_ms", time.Since(startedAt).Milliseconds(),
	)
	return outcome, searchErr
}

// SearchText runs a manual lyrics search over free text.
func (p *Pipeline) SearchText(ctx context.Context, text string) (session.Observation, bool, error) {
	normalized := transcript.Normalize(text)
	if normalized == "" {
		return session.Observation{}, false, recognize.ErrNoSpeechDetected
	}
	queries := transcript.Queries(normalized)
	if len(queries) == 0 {
		return session.Observation{}, false, recognize.ErrTranscriptTooShort
	}

	hit, err := p.searchQueries(ctx, queries)
	if err != nil {
		return session.Observation{}, false, err
	}
	if hit == nil {
		return session.Observation{}, false, nil
	}
	return session.Observation{Result: *hit, Confidence: LyricsConfidence(transcript.WordCount(normalized))}, true, nil
}

func (p *Pipeline) matchFingerprint(ctx context.Context, chunk session.Chunk, clip recognize.Clip) *recognize.SongResult {
	if p.fingerprint == nil || clip.Empty() {
		return nil
	}
	result, err := p.fingerprint.Match(ctx, clip)
	if err != nil {
		p.logDebug("fingerprint lookup failed",
			"session_id", chunk.SessionID,
			"chunk", chunk.Index,
			"error", err.Error(),
		)
		return nil
	}
	if result == nil {
		return nil
	}
	matched := *result
	matched.Source = recognize.SourceFingerprint
	return &matched
}

func (p *Pipeline) transcribe(ctx context.Context, clip recognize.Clip) (string, error) {
	if p.transcriber == nil {
		return "", recognize.Wrapf(recognize.ErrTranscriptionRequestFailed, "transcription is not configured", nil)
	}
	text, err := p.transcriber.Transcribe(ctx, clip, p.language)
	if err != nil {
		if recognize.KindOf(err) == "" {
			err = recognize.Wrap(recognize.ErrTranscriptionRequestFailed, err)
		}
		return "", err
	}
	return text, nil
}

// searchQueries tries each query in order and returns the first hit. The
// first search error aborts the remaining queries.
func (p *Pipeline) searchQueries(ctx context.Context, queries []string) (*recognize.SongResult, error) {
	if p.lyrics == nil {
		return nil, recognize.Wrapf(recognize.ErrLyricsSearchFailed, "lyrics search is not configured", nil)
	}
	for i, query := range queries {
		hit, err := p.lyrics.Search(ctx, query)
		if err != nil {
			if recognize.KindOf(err) == "" {
				err = recognize.Wrap(recognize.ErrLyricsSearchFailed, err)
			}
			return nil, err
		}
		if hit == nil {
			continue
		}
		p.logDebug("lyrics query matched", "query_index", i, "query", query)
		found := *hit
		found.Source = recognize.SourceLyrics
		return &found, nil
	}
	return nil, nil
}

func (p *Pipeline) appendHistory(ctx context.Context, sessionID uint64, outcome session.Outcome) *history.Entry {
	entry := history.NewEntry(sessionID, outcome.Transcript, outcome.Normalized, outcome.Final)
	if err := p.history.Append(ctx, entry); err != nil {
		p.logWarn("history append failed", "session_id", sessionID, "error", err.Error())
	}
	return &entry
}

func (p *Pipeline) logDebug(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Debug(msg, args...)
}

func (p *Pipeline) logInfo(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Info(msg, args...)
}

func (p *Pipeline) logWarn(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, args...)
}

func describeChunk(chunk session.Chunk, final bool) string {
	if final {
		return fmt.Sprintf("s%d-final", chunk.SessionID)
	}
	return fmt.Sprintf("s%d-c%d", chunk.SessionID, chunk.Index)
}
