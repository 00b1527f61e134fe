package config

import (
	"os"
	"strings"
)

// Credential environment variables. A non-empty value overrides the file.
const (
	EnvFingerprintToken = "EARWORM_AUDD_TOKEN"
	EnvTranscriptionKey = "EARWORM_ASSEMBLYAI_KEY"
	EnvLyricsToken      = "EARWORM_GENIUS_TOKEN"
)

func applyEnv(cfg *Config) []Warning {
	var warnings []Warning
	for _, override := range []struct {
		env    string
		target *string
	}{
		{env: EnvFingerprintToken, target: &cfg.Credentials.Fingerprint},
		{env: EnvTranscriptionKey, target: &cfg.Credentials.Transcription},
		{env: EnvLyricsToken, target: &cfg.Credentials.Lyrics},
	} {
		value := strings.TrimSpace(os.Getenv(override.env))
		if value == "" {
			continue
		}
		if strings.TrimSpace(*override.target) != "" {
			warnings = append(warnings, Warning{Message: override.env + " overrides the credential set in the config file"})
		}
		*override.target = value
	}
	return warnings
}
