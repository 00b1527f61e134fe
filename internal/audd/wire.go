package audd

import (
	"strings"

	"github.com/rbright/earworm/internal/recognize"
)

type response struct {
	Status string     `json:"status"`
	Result *match     `json:"result"`
	Error  *errorBody `json:"error"`
}

type errorBody struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

type match struct {
	Artist     string      `json:"artist"`
	Title      string      `json:"title"`
	Album      string      `json:"album"`
	SongLink   string      `json:"song_link"`
	AppleMusic *appleMusic `json:"apple_music"`
	Spotify    *spotify    `json:"spotify"`
}

type appleMusic struct {
	URL      string `json:"url"`
	Previews []struct {
		URL string `json:"url"`
	} `json:"previews"`
	Artwork *struct {
		URL string `json:"url"`
	} `json:"artwork"`
}

type spotify struct {
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	PreviewURL string `json:"preview_url"`
	Album      struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

// artworkSize replaces the Apple Music artwork template placeholders.
const artworkSize = "600"

func mapResult(m *match) *recognize.SongResult {
	if m == nil {
		return nil
	}
	title := strings.TrimSpace(m.Title)
	artist := strings.TrimSpace(m.Artist)
	if title == "" || artist == "" {
		return nil
	}

	result := &recognize.SongResult{
		Title:        title,
		Artist:       artist,
		DisplayTitle: title + " - " + artist,
		URL:          strings.TrimSpace(m.SongLink),
		Source:       recognize.SourceFingerprint,
	}

	if am := m.AppleMusic; am != nil {
		if am.Artwork != nil && am.Artwork.URL != "" {
			art := strings.ReplaceAll(am.Artwork.URL, "{w}", artworkSize)
			result.ArtworkURL = strings.ReplaceAll(art, "{h}", artworkSize)
		}
		if len(am.Previews) > 0 {
			result.PreviewURL = am.Previews[0].URL
		}
		if result.URL == "" {
			result.URL = am.URL
		}
	}
	if sp := m.Spotify; sp != nil {
		if result.ArtworkURL == "" && len(sp.Album.Images) > 0 {
			result.ArtworkURL = sp.Album.Images[0].URL
		}
		if result.PreviewURL == "" {
			result.PreviewURL = sp.PreviewURL
		}
		if result.URL == "" {
			result.URL = sp.ExternalURLs.Spotify
		}
	}
	return result
}
