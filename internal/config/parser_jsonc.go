package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	Credentials *jsoncServices    `json:"credentials"`
	Endpoints   *jsoncServices    `json:"endpoints"`
	Audio       *jsoncAudio       `json:"audio"`
	Recognition *jsoncRecognition `json:"recognition"`
	Indicator   *jsoncIndicator   `json:"indicator"`
	History     *jsoncHistory     `json:"history"`
	Feed        *jsoncFeed        `json:"feed"`

	ClipboardCmd *string     `json:"clipboard_cmd"`
	Debug        *jsoncDebug `json:"debug"`
}

type jsoncServices struct {
	Fingerprint   *string `json:"fingerprint"`
	Transcription *string `json:"transcription"`
	Lyrics        *string `json:"lyrics"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncRecognition struct {
	Language            *string `json:"language"`
	ChunkIntervalMS     *int    `json:"chunk_interval_ms"`
	MinCredentialLength *int    `json:"min_credential_length"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncHistory struct {
	Backend    *string `json:"backend"`
	SQLitePath *string `json:"sqlite_path"`
	RedisAddr  *string `json:"redis_addr"`
	RedisKey   *string `json:"redis_key"`
	Limit      *int    `json:"limit"`
}

type jsoncFeed struct {
	Listen *string `json:"listen"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, applyEnv(&cfg)...)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Credentials != nil {
		setTrimmed(&cfg.Credentials.Fingerprint, payload.Credentials.Fingerprint)
		setTrimmed(&cfg.Credentials.Transcription, payload.Credentials.Transcription)
		setTrimmed(&cfg.Credentials.Lyrics, payload.Credentials.Lyrics)
	}

	if payload.Endpoints != nil {
		setTrimmed(&cfg.Endpoints.Fingerprint, payload.Endpoints.Fingerprint)
		setTrimmed(&cfg.Endpoints.Transcription, payload.Endpoints.Transcription)
		setTrimmed(&cfg.Endpoints.Lyrics, payload.Endpoints.Lyrics)
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Recognition != nil {
		if payload.Recognition.Language != nil {
			cfg.Recognition.Language = strings.ToLower(strings.TrimSpace(*payload.Recognition.Language))
		}
		if payload.Recognition.ChunkIntervalMS != nil {
			cfg.Recognition.ChunkIntervalMS = *payload.Recognition.ChunkIntervalMS
		}
		if payload.Recognition.MinCredentialLength != nil {
			cfg.Recognition.MinCredentialLength = *payload.Recognition.MinCredentialLength
		}
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		setTrimmed(&cfg.Indicator.Backend, payload.Indicator.Backend)
		setTrimmed(&cfg.Indicator.DesktopAppName, payload.Indicator.DesktopAppName)
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
	}

	if payload.History != nil {
		if payload.History.Backend != nil {
			cfg.History.Backend = strings.ToLower(strings.TrimSpace(*payload.History.Backend))
		}
		setTrimmed(&cfg.History.SQLitePath, payload.History.SQLitePath)
		setTrimmed(&cfg.History.RedisAddr, payload.History.RedisAddr)
		setTrimmed(&cfg.History.RedisKey, payload.History.RedisKey)
		if payload.History.Limit != nil {
			cfg.History.Limit = *payload.History.Limit
		}
	}

	if payload.Feed != nil {
		setTrimmed(&cfg.Feed.Listen, payload.Feed.Listen)
	}

	if payload.ClipboardCmd != nil {
		command, err := ParseCommand(*payload.ClipboardCmd)
		if err != nil {
			return nil, fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = command
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	if cfg.Recognition.MinCredentialLength == 0 {
		warnings = append(warnings, Warning{Message: "recognition.min_credential_length=0 accepts any non-empty credential"})
	}

	return warnings, nil
}

func setTrimmed(target *string, value *string) {
	if value == nil {
		return
	}
	*target = strings.TrimSpace(*value)
}
