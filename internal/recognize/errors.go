package recognize

import (
	"errors"
	"strings"
)

// Kind classifies user-visible recognition failures.
type Kind string

const (
	KindMissingCredentials         Kind = "missing_credentials"
	KindPermissionDenied           Kind = "permission_denied"
	KindNoAudioCaptured            Kind = "no_audio_captured"
	KindNoSpeechDetected           Kind = "no_speech_detected"
	KindTranscriptTooShort         Kind = "transcript_too_short"
	KindTranscriptionRequestFailed Kind = "transcription_request_failed"
	KindTranscriptionTimeout       Kind = "transcription_timeout"
	KindLyricsSearchFailed         Kind = "lyrics_search_failed"
	KindRecordingStartFailed       Kind = "recording_start_failed"
	KindRecordingStopFailed        Kind = "recording_stop_failed"
)

// Error is a classified failure carrying a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrMissingCredentials         = &Error{Kind: KindMissingCredentials, Message: "API credentials are missing or too short; check the credentials section of your config"}
	ErrPermissionDenied           = &Error{Kind: KindPermissionDenied, Message: "microphone access was denied"}
	ErrNoAudioCaptured            = &Error{Kind: KindNoAudioCaptured, Message: "no audio was captured"}
	ErrNoSpeechDetected           = &Error{Kind: KindNoSpeechDetected, Message: "no singing or speech detected"}
	ErrTranscriptTooShort         = &Error{Kind: KindTranscriptTooShort, Message: "transcript is too short to search lyrics; sing a little longer"}
	ErrTranscriptionRequestFailed = &Error{Kind: KindTranscriptionRequestFailed, Message: "transcription request failed"}
	ErrTranscriptionTimeout       = &Error{Kind: KindTranscriptionTimeout, Message: "transcription timed out"}
	ErrLyricsSearchFailed         = &Error{Kind: KindLyricsSearchFailed, Message: "lyrics search failed"}
	ErrRecordingStartFailed       = &Error{Kind: KindRecordingStartFailed, Message: "unable to start recording"}
	ErrRecordingStopFailed        = &Error{Kind: KindRecordingStopFailed, Message: "unable to stop recording"}
)

// Wrap attaches a cause to a sentinel while keeping its kind and message.
func Wrap(sentinel *Error, err error) error {
	if err == nil {
		return sentinel
	}
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: err}
}

// Wrapf is Wrap with a replacement message.
func Wrapf(sentinel *Error, message string, err error) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = sentinel.Message
	}
	return &Error{Kind: sentinel.Kind, Message: message, Err: err}
}

// KindOf returns the taxonomy kind of err, or "" when err is unclassified.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return ""
}

// Message renders the single user-visible message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Error()
	}
	return err.Error()
}
