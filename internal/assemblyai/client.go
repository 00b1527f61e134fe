// Package assemblyai transcribes audio clips with the AssemblyAI batch API.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/earworm/internal/audio"
	"github.com/rbright/earworm/internal/httpx"
	"github.com/rbright/earworm/internal/recognize"
)

const (
	// DefaultEndpoint is the AssemblyAI API base URL.
	DefaultEndpoint = "https://api.assemblyai.com"
	// DefaultPollInterval is the delay between transcript status checks.
	DefaultPollInterval = 1500 * time.Millisecond
	// DefaultPollAttempts bounds the number of transcript status checks.
	DefaultPollAttempts = 30

	serviceName = "assemblyai"
)

// Client implements recognize.Transcriber against AssemblyAI.
type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger

	PollInterval time.Duration
	PollAttempts int
}

var _ recognize.Transcriber = (*Client)(nil)

// New constructs an AssemblyAI client. An empty endpoint uses DefaultEndpoint.
func New(httpClient *http.Client, endpoint string, apiKey string, logger *slog.Logger) *Client {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		http:         httpx.New(serviceName, httpClient, logger),
		baseURL:      endpoint,
		apiKey:       strings.TrimSpace(apiKey),
		logger:       logger,
		PollInterval: DefaultPollInterval,
		PollAttempts: DefaultPollAttempts,
	}
}

// Transcribe uploads clip, requests a transcript, and polls until it completes.
// language "auto" or "" enables language detection.
func (c *Client) Transcribe(ctx context.Context, clip recognize.Clip, language string) (string, error) {
	if c.apiKey == "" {
		return "", recognize.ErrMissingCredentials
	}

	wavBytes, err := audio.EncodeWAV(clip.PCM, clip.SampleRate, clip.Channels)
	if err != nil {
		return "", recognize.Wrap(recognize.ErrTranscriptionRequestFailed, err)
	}

	uploadURL, err := c.upload(ctx, wavBytes)
	if err != nil {
		return "", recognize.Wrap(recognize.ErrTranscriptionRequestFailed, err)
	}

	id, err := c.createTranscript(ctx, uploadURL, language)
	if err != nil {
		return "", recognize.Wrap(recognize.ErrTranscriptionRequestFailed, err)
	}

	return c.poll(ctx, id)
}

func (c *Client) upload(ctx context.Context, wavBytes []byte) (string, error) {
	var out uploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", wavBytes, &out); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	if strings.TrimSpace(out.UploadURL) == "" {
		return "", fmt.Errorf("upload audio: empty upload_url")
	}
	return out.UploadURL, nil
}

func (c *Client) createTranscript(ctx context.Context, uploadURL string, language string) (string, error) {
	payload := transcriptRequest{AudioURL: uploadURL}
	language = strings.TrimSpace(strings.ToLower(language))
	if language == "" || language == "auto" {
		payload.LanguageDetection = true
	} else {
		payload.LanguageCode = language
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode transcript request: %w", err)
	}

	var out transcriptResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v2/transcript", "application/json", body, &out); err != nil {
		return "", fmt.Errorf("create transcript: %w", err)
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", fmt.Errorf("create transcript: empty id")
	}
	return out.ID, nil
}

func (c *Client) poll(ctx context.Context, id string) (string, error) {
	attempts := c.PollAttempts
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	path := "/v2/transcript/" + url.PathEscape(id)

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := httpx.SleepWithContext(ctx, c.PollInterval); err != nil {
			return "", recognize.Wrap(recognize.ErrTranscriptionRequestFailed, err)
		}

		var out transcriptResponse
		if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &out); err != nil {
			return "", recognize.Wrap(recognize.ErrTranscriptionRequestFailed, fmt.Errorf("poll transcript: %w", err))
		}

		switch out.Status {
		case statusCompleted:
			return out.Text, nil
		case statusError:
			return "", recognize.Wrapf(recognize.ErrTranscriptionRequestFailed, remoteFailureMessage(out.Error), nil)
		}

		if c.logger != nil {
			c.logger.Debug("transcript pending", "id", id, "status", out.Status, "attempt", attempt)
		}
	}

	return "", recognize.ErrTranscriptionTimeout
}

func (c *Client) doJSON(ctx context.Context, method string, path string, contentType string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	if err := httpx.CheckStatus(serviceName, resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func remoteFailureMessage(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return "transcription failed"
	}
	return "transcription failed: " + detail
}
