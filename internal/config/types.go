// Package config resolves, parses, validates, and defaults earworm configuration.
package config

// Config is the fully materialized runtime configuration used by earworm.
type Config struct {
	Credentials CredentialsConfig
	Endpoints   EndpointsConfig
	Audio       AudioConfig
	Recognition RecognitionConfig
	Indicator   IndicatorConfig
	History     HistoryConfig
	Feed        FeedConfig
	Clipboard   CommandConfig
	Debug       DebugConfig
}

// CredentialsConfig holds the API secrets for the three recognition services.
type CredentialsConfig struct {
	Fingerprint   string
	Transcription string
	Lyrics        string
}

// EndpointsConfig holds base URLs for the recognition services.
type EndpointsConfig struct {
	Fingerprint   string
	Transcription string
	Lyrics        string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// RecognitionConfig controls transcription language and chunk cadence.
type RecognitionConfig struct {
	Language            string
	ChunkIntervalMS     int
	MinCredentialLength int
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// HistoryConfig selects the recognition history backend.
type HistoryConfig struct {
	Backend    string
	SQLitePath string
	RedisAddr  string
	RedisKey   string
	Limit      int
}

// FeedConfig controls the optional live snapshot websocket feed.
// An empty Listen disables the feed.
type FeedConfig struct {
	Listen string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
