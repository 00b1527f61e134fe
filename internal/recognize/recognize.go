// Package recognize defines song-recognition result types, collaborator contracts, and the error taxonomy.
package recognize

import (
	"context"
	"strings"
)

// Source tags which recognition path produced a result.
type Source string

const (
	SourceFingerprint Source = "fingerprint"
	SourceLyrics      Source = "lyrics"
)

// SongResult is one candidate song identity produced by a single recognition call.
type SongResult struct {
	Title        string `json:"title" yaml:"title"`
	Artist       string `json:"artist" yaml:"artist"`
	DisplayTitle string `json:"display_title" yaml:"display_title"`
	URL          string `json:"url" yaml:"url"`
	ArtworkURL   string `json:"artwork_url,omitempty" yaml:"artwork_url,omitempty"`
	PreviewURL   string `json:"preview_url,omitempty" yaml:"preview_url,omitempty"`
	Source       Source `json:"source" yaml:"source"`
}

// Key returns the identity key used to merge repeated sightings.
//
// The key is the exact title+artist concatenation, so spelling or case
// variants of the same song are distinct identities.
func (r SongResult) Key() string {
	return r.Title + r.Artist
}

// Label renders a short human-readable description of the result.
func (r SongResult) Label() string {
	if title := strings.TrimSpace(r.DisplayTitle); title != "" {
		return title
	}
	title := strings.TrimSpace(r.Title)
	artist := strings.TrimSpace(r.Artist)
	switch {
	case title == "":
		return artist
	case artist == "":
		return title
	default:
		return title + " by " + artist
	}
}

// Clip is one finalized audio segment handed to recognition clients.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Empty reports whether the clip carries no audio.
func (c Clip) Empty() bool {
	return len(c.PCM) == 0
}

// FingerprintMatcher identifies a song from its acoustic signature.
// Returning (nil, nil) means no match.
type FingerprintMatcher interface {
	Match(context.Context, Clip) (*SongResult, error)
}

// Transcriber converts a clip into text in the requested language.
type Transcriber interface {
	Transcribe(ctx context.Context, clip Clip, language string) (string, error)
}

// LyricsSearcher resolves one lyrics query. Returning (nil, nil) means no hits.
type LyricsSearcher interface {
	Search(ctx context.Context, query string) (*SongResult, error)
}
