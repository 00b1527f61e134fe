package audd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rbright/earworm/internal/recognize"
	"github.com/stretchr/testify/require"
)

func testClip() recognize.Clip {
	return recognize.Clip{PCM: []byte{1, 0, 2, 0, 3, 0, 4, 0}, SampleRate: 16000, Channels: 1}
}

func TestMatchMapsSuccessfulResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "token-1234567890", r.FormValue("api_token"))
		require.Equal(t, "apple_music,spotify", r.FormValue("return"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "chunk.wav", header.Filename)

		_, _ = w.Write([]byte(`{
			"status": "success",
			"result": {
				"artist": "Adele",
				"title": "Hello",
				"song_link": "https://lis.tn/hello",
				"apple_music": {
					"previews": [{"url": "https://audio.example/hello.m4a"}],
					"artwork": {"url": "https://img.example/{w}x{h}bb.jpg"}
				}
			}
		}`))
	}))
	defer ts.Close()

	client := New(ts.Client(), ts.URL, "token-1234567890", nil)
	result, err := client.Match(context.Background(), testClip())
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, "Hello", result.Title)
	require.Equal(t, "Adele", result.Artist)
	require.Equal(t, "Hello - Adele", result.DisplayTitle)
	require.Equal(t, "https://lis.tn/hello", result.URL)
	require.Equal(t, "https://img.example/600x600bb.jpg", result.ArtworkURL)
	require.Equal(t, "https://audio.example/hello.m4a", result.PreviewURL)
	require.Equal(t, recognize.SourceFingerprint, result.Source)
}

func TestMatchNullResultIsNoMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","result":null}`))
	}))
	defer ts.Close()

	result, err := New(ts.Client(), ts.URL, "token-1234567890", nil).Match(context.Background(), testClip())
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestMatchResultWithoutArtistIsNoMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","result":{"title":"Hello","artist":"  "}}`))
	}))
	defer ts.Close()

	result, err := New(ts.Client(), ts.URL, "token-1234567890", nil).Match(context.Background(), testClip())
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestMatchRemoteErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","error":{"error_code":901,"error_message":"limit reached"}}`))
	}))
	defer ts.Close()

	_, err := New(ts.Client(), ts.URL, "token-1234567890", nil).Match(context.Background(), testClip())
	require.Error(t, err)
	require.Contains(t, err.Error(), "limit reached")
}

func TestMatchNon2xxFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := New(ts.Client(), ts.URL, "token-1234567890", nil).Match(context.Background(), testClip())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 403")
}

func TestMatchWithoutTokenSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	_, err := New(ts.Client(), ts.URL, " ", nil).Match(context.Background(), testClip())
	require.ErrorIs(t, err, recognize.ErrMissingCredentials)
	require.Zero(t, calls.Load())
}

func TestMatchEmptyClipIsNoMatch(t *testing.T) {
	result, err := New(nil, "http://127.0.0.1:1", "token-1234567890", nil).Match(context.Background(), recognize.Clip{})
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestMapResultFallsBackToSpotify(t *testing.T) {
	m := &match{Title: "Hello", Artist: "Adele", Spotify: &spotify{PreviewURL: "https://p.example/x"}}
	m.Spotify.ExternalURLs.Spotify = "https://open.spotify.com/track/1"

	result := mapResult(m)
	require.Equal(t, "https://open.spotify.com/track/1", result.URL)
	require.Equal(t, "https://p.example/x", result.PreviewURL)
}
