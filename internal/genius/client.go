// Package genius searches lyrics through the Genius API.
package genius

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/earworm/internal/httpx"
	"github.com/rbright/earworm/internal/recognize"
	"golang.org/x/oauth2"
)

// DefaultEndpoint is the Genius API base URL.
const DefaultEndpoint = "https://api.genius.com"

const serviceName = "genius"

// Client implements recognize.LyricsSearcher against Genius.
type Client struct {
	http    *httpx.Client
	baseURL string
	hasAuth bool
}

var _ recognize.LyricsSearcher = (*Client)(nil)

// New constructs a Genius client that authenticates with a static bearer token.
func New(httpClient *http.Client, endpoint string, token string, logger *slog.Logger) *Client {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	token = strings.TrimSpace(token)

	return &Client{
		http:    httpx.New(serviceName, bearerClient(httpClient, token), logger),
		baseURL: endpoint,
		hasAuth: token != "",
	}
}

func bearerClient(base *http.Client, token string) *http.Client {
	timeout := 30 * time.Second
	var transport http.RoundTripper
	if base != nil {
		timeout = base.Timeout
		transport = base.Transport
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   transport,
		},
	}
}

// Search returns the first song hit for query, or nil when nothing matched.
func (c *Client) Search(ctx context.Context, query string) (*recognize.SongResult, error) {
	if !c.hasAuth {
		return nil, recognize.ErrMissingCredentials
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	endpoint := c.baseURL + "/search?" + url.Values{"q": []string{query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", serviceName, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if err := httpx.CheckStatus(serviceName, resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", serviceName, err)
	}

	for _, hit := range payload.Response.Hits {
		if hit.Type != "song" {
			continue
		}
		if result := mapSong(hit.Result); result != nil {
			return result, nil
		}
	}
	return nil, nil
}

type searchResponse struct {
	Response struct {
		Hits []struct {
			Type   string `json:"type"`
			Result song   `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

type song struct {
	Title                string `json:"title"`
	FullTitle            string `json:"full_title"`
	URL                  string `json:"url"`
	SongArtImageURL      string `json:"song_art_image_url"`
	HeaderImageThumbnail string `json:"header_image_thumbnail_url"`
	PrimaryArtist        struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
}

func mapSong(s song) *recognize.SongResult {
	title := strings.TrimSpace(s.Title)
	artist := strings.TrimSpace(s.PrimaryArtist.Name)
	if title == "" || artist == "" {
		return nil
	}
	artwork := s.SongArtImageURL
	if artwork == "" {
		artwork = s.HeaderImageThumbnail
	}
	display := strings.TrimSpace(s.FullTitle)
	if display == "" {
		display = title + " by " + artist
	}
	return &recognize.SongResult{
		Title:        title,
		Artist:       artist,
		DisplayTitle: display,
		URL:          s.URL,
		ArtworkURL:   artwork,
		Source:       recognize.SourceLyrics,
	}
}
