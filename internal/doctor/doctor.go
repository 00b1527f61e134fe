// Package doctor runs runtime readiness diagnostics for config, credentials, audio, services, and history.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/earworm/internal/audio"
	"github.com/rbright/earworm/internal/config"
	"github.com/rbright/earworm/internal/history"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkCredentials(cfg.Config)...)

	client := &http.Client{Timeout: 3 * time.Second}
	checks = append(checks,
		checkEndpoint(ctx, client, "endpoints.fingerprint", cfg.Config.Endpoints.Fingerprint),
		checkEndpoint(ctx, client, "endpoints.transcription", cfg.Config.Endpoints.Transcription),
		checkEndpoint(ctx, client, "endpoints.lyrics", cfg.Config.Endpoints.Lyrics),
	)

	if cfg.Config.Indicator.Enable && strings.EqualFold(strings.TrimSpace(cfg.Config.Indicator.Backend), "hypr") {
		checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty; use indicator.backend=desktop"))
		checks = append(checks, checkBinary("hyprctl", "hypr indicator backend requires hyprctl"))
	}

	if len(cfg.Config.Clipboard.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkHistory(ctx, cfg.Config.History))

	return Report{Checks: checks}
}

// checkCredentials reports each service credential against the minimum length.
func checkCredentials(cfg config.Config) []Check {
	minLength := max(cfg.Recognition.MinCredentialLength, 1)
	credentials := []struct {
		name     string
		env      string
		value    string
		optional bool
	}{
		{name: "credentials.fingerprint", env: config.EnvFingerprintToken, value: cfg.Credentials.Fingerprint, optional: true},
		{name: "credentials.transcription", env: config.EnvTranscriptionKey, value: cfg.Credentials.Transcription},
		{name: "credentials.lyrics", env: config.EnvLyricsToken, value: cfg.Credentials.Lyrics},
	}

	checks := make([]Check, 0, len(credentials))
	for _, credential := range credentials {
		length := len(strings.TrimSpace(credential.value))
		if length < minLength && credential.optional {
			checks = append(checks, Check{
				Name:    credential.name,
				Pass:    true,
				Message: fmt.Sprintf("not set; matching disabled (set it in config or %s)", credential.env),
			})
			continue
		}
		if length < minLength {
			checks = append(checks, Check{
				Name:    credential.name,
				Pass:    false,
				Message: fmt.Sprintf("missing or shorter than %d characters (set it in config or %s)", minLength, credential.env),
			})
			continue
		}
		checks = append(checks, Check{Name: credential.name, Pass: true, Message: fmt.Sprintf("set (%d characters)", length)})
	}
	return checks
}

// checkEndpoint treats any HTTP response below 500 as reachable.
func checkEndpoint(ctx context.Context, client *http.Client, name string, url string) Check {
	url = strings.TrimSpace(url)
	if url == "" {
		return Check{Name: name, Pass: false, Message: "endpoint is empty"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("invalid endpoint: %v", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s (HTTP %d)", url, resp.StatusCode)}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkHistory opens and closes the configured history backend.
func checkHistory(ctx context.Context, cfg config.HistoryConfig) Check {
	store, err := history.Open(ctx, history.Options{
		Backend:    cfg.Backend,
		SQLitePath: cfg.SQLitePath,
		RedisAddr:  cfg.RedisAddr,
		RedisKey:   cfg.RedisKey,
	})
	if err != nil {
		return Check{Name: "history", Pass: false, Message: err.Error()}
	}
	_ = store.Close()
	return Check{Name: "history", Pass: true, Message: fmt.Sprintf("%s backend ready", cfg.Backend)}
}
