// Package audd matches audio clips against the AudD fingerprint service.
package audd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rbright/earworm/internal/audio"
	"github.com/rbright/earworm/internal/httpx"
	"github.com/rbright/earworm/internal/recognize"
)

// DefaultEndpoint is the public AudD recognition endpoint.
const DefaultEndpoint = "https://api.audd.io/"

const serviceName = "audd"

// Client implements recognize.FingerprintMatcher against AudD.
type Client struct {
	http     *httpx.Client
	endpoint string
	token    string
}

var _ recognize.FingerprintMatcher = (*Client)(nil)

// New constructs an AudD client. An empty endpoint uses DefaultEndpoint.
func New(httpClient *http.Client, endpoint string, token string, logger *slog.Logger) *Client {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		http:     httpx.New(serviceName, httpClient, logger),
		endpoint: endpoint,
		token:    strings.TrimSpace(token),
	}
}

// Match uploads clip and returns the matched song, or nil when AudD has no confident match.
func (c *Client) Match(ctx context.Context, clip recognize.Clip) (*recognize.SongResult, error) {
	if c.token == "" {
		return nil, recognize.ErrMissingCredentials
	}
	if clip.Empty() {
		return nil, nil
	}

	wavBytes, err := audio.EncodeWAV(clip.PCM, clip.SampleRate, clip.Channels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", serviceName, err)
	}

	body, contentType, err := buildForm(c.token, wavBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: build form: %w", serviceName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", serviceName, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if err := httpx.CheckStatus(serviceName, resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", serviceName, err)
	}
	if payload.Status != "success" {
		if payload.Error != nil {
			return nil, fmt.Errorf("%s: error %d: %s", serviceName, payload.Error.Code, payload.Error.Message)
		}
		return nil, fmt.Errorf("%s: status %q", serviceName, payload.Status)
	}
	return mapResult(payload.Result), nil
}

func buildForm(token string, wavBytes []byte) ([]byte, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("api_token", token); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("return", "apple_music,spotify"); err != nil {
		return nil, "", err
	}
	part, err := writer.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wavBytes); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}
