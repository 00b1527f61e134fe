package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/rbright/earworm/internal/recognize"
)

// Languages lists the accepted recognition.language values. "auto" enables
// remote language detection.
var Languages = []string{"auto", "en", "vi", "es", "fr", "de", "ja", "ko", "zh", "pt", "it"}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	for name, endpoint := range map[string]string{
		"endpoints.fingerprint":   cfg.Endpoints.Fingerprint,
		"endpoints.transcription": cfg.Endpoints.Transcription,
		"endpoints.lyrics":        cfg.Endpoints.Lyrics,
	} {
		if err := validateEndpoint(name, endpoint); err != nil {
			return nil, err
		}
	}

	language := strings.TrimSpace(cfg.Recognition.Language)
	if language == "" {
		return nil, fmt.Errorf("recognition.language must not be empty")
	}
	if !slices.Contains(Languages, language) {
		return nil, fmt.Errorf("recognition.language must be one of: %s", strings.Join(Languages, ", "))
	}
	if cfg.Recognition.ChunkIntervalMS < 1000 {
		return nil, fmt.Errorf("recognition.chunk_interval_ms must be >= 1000")
	}
	if cfg.Recognition.MinCredentialLength < 0 {
		return nil, fmt.Errorf("recognition.min_credential_length must be >= 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.History.Backend)) {
	case "sqlite", "none":
	case "redis":
		if strings.TrimSpace(cfg.History.RedisAddr) == "" {
			return nil, fmt.Errorf("history.redis_addr must not be empty when history.backend=redis")
		}
	default:
		return nil, fmt.Errorf("history.backend must be one of: sqlite, redis, none")
	}
	if cfg.History.Limit <= 0 {
		return nil, fmt.Errorf("history.limit must be > 0")
	}

	if cfg.Clipboard.Raw != "" && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd is configured but empty")
	}

	for _, missing := range missingCredentials(cfg) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("credentials.%s is missing or shorter than %d characters", missing, cfg.Recognition.MinCredentialLength)})
	}
	if !FingerprintEnabled(cfg) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("credentials.fingerprint is missing or shorter than %d characters; fingerprint matching is disabled", cfg.Recognition.MinCredentialLength)})
	}

	return warnings, nil
}

// CheckCredentials reports recognize.ErrMissingCredentials unless the
// transcription and lyrics credentials meet the configured minimum length.
// The fingerprint token is optional; without it lookups report no match.
func CheckCredentials(cfg Config) error {
	missing := missingCredentials(cfg)
	if len(missing) == 0 {
		return nil
	}
	return recognize.Wrap(recognize.ErrMissingCredentials, fmt.Errorf("missing: %s", strings.Join(missing, ", ")))
}

// FingerprintEnabled reports whether the fingerprint token meets the minimum length.
func FingerprintEnabled(cfg Config) bool {
	return !credentialTooShort(cfg.Credentials.Fingerprint, cfg.Recognition.MinCredentialLength)
}

func missingCredentials(cfg Config) []string {
	var missing []string
	if credentialTooShort(cfg.Credentials.Transcription, cfg.Recognition.MinCredentialLength) {
		missing = append(missing, "transcription")
	}
	if credentialTooShort(cfg.Credentials.Lyrics, cfg.Recognition.MinCredentialLength) {
		missing = append(missing, "lyrics")
	}
	return missing
}

func credentialTooShort(value string, minLength int) bool {
	return len(strings.TrimSpace(value)) < max(minLength, 1)
}

func validateEndpoint(name string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http or https URL", name)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
