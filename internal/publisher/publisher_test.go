package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-notice-bot/internal/config"
	"campus-notice-bot/internal/media"
)

type graphServer struct {
	srv         *httptest.Server
	uploads     atomic.Int32
	posts       atomic.Int32
	failUploads atomic.Int32 // number of upload calls to fail before succeeding
	lastPost    atomic.Value // url.Values encoded as map[string][]string
}

func newGraphServer(t *testing.T) *graphServer {
	t.Helper()
	g := &graphServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/12345/photos", func(w http.ResponseWriter, r *http.Request) {
		n := g.uploads.Add(1)
		if g.failUploads.Load() >= n {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "false", r.MultipartForm.Value["published"][0])
		assert.Equal(t, "test-token", r.MultipartForm.Value["access_token"][0])
		_ = json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("media-%d", n)})
	})
	mux.HandleFunc("/12345/feed", func(w http.ResponseWriter, r *http.Request) {
		g.posts.Add(1)
		require.NoError(t, r.ParseForm())
		g.lastPost.Store(map[string][]string(r.PostForm))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "post-1"})
	})
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func newTestPublisher(t *testing.T, g *graphServer, allowTextOnly bool) *Publisher {
	t.Helper()
	cfg := config.PublishConfig{
		GraphURL:      g.srv.URL,
		AllowTextOnly: allowTextOnly,
		UploadRetries: 3,
	}
	creds := config.Credentials{PageID: "12345", AccessToken: "test-token"}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(cfg, creds, time.Millisecond, logger)
}

func tempAssets(t *testing.T, n int) []media.Asset {
	t.Helper()
	dir := t.TempDir()
	assets := make([]media.Asset, n)
	for i := range assets {
		path := filepath.Join(dir, fmt.Sprintf("asset-%d.png", i))
		require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))
		assets[i] = media.Asset{Path: path, PageNum: i + 1, Origin: "document"}
	}
	return assets
}

func TestPublishWithMedia(t *testing.T) {
	g := newGraphServer(t)
	p := newTestPublisher(t, g, false)
	assets := tempAssets(t, 3)

	outcome, err := p.Publish(context.Background(), "CSIT Exam Routine", assets)

	require.NoError(t, err)
	assert.Equal(t, OutcomePostedWithMedia, outcome)
	assert.Equal(t, int32(3), g.uploads.Load())
	assert.Equal(t, int32(1), g.posts.Load(), "exactly one create-post call")

	form := g.lastPost.Load().(map[string][]string)
	assert.Equal(t, "CSIT Exam Routine", form["message"][0])
	assert.Contains(t, form["attached_media[0]"][0], "media-1")
	assert.Contains(t, form["attached_media[2]"][0], "media-3")

	for _, asset := range assets {
		assert.NoFileExists(t, asset.Path, "assets deleted after publish")
	}
}

func TestPublishRetriesUploads(t *testing.T) {
	g := newGraphServer(t)
	g.failUploads.Store(2) // first two calls fail, third succeeds
	p := newTestPublisher(t, g, false)
	assets := tempAssets(t, 1)

	outcome, err := p.Publish(context.Background(), "Notice", assets)

	require.NoError(t, err)
	assert.Equal(t, OutcomePostedWithMedia, outcome)
	assert.Equal(t, int32(3), g.uploads.Load())
}

func TestPublishOmitsFailedAsset(t *testing.T) {
	g := newGraphServer(t)
	g.failUploads.Store(3) // first asset exhausts all 3 attempts
	p := newTestPublisher(t, g, false)
	assets := tempAssets(t, 2)

	outcome, err := p.Publish(context.Background(), "Notice", assets)

	require.NoError(t, err)
	assert.Equal(t, OutcomePostedWithMedia, outcome)
	assert.Equal(t, int32(1), g.posts.Load())

	form := g.lastPost.Load().(map[string][]string)
	assert.Contains(t, form, "attached_media[0]")
	assert.NotContains(t, form, "attached_media[1]", "failed asset omitted")

	for _, asset := range assets {
		assert.NoFileExists(t, asset.Path)
	}
}

func TestPublishSkipsWhenAllUploadsFail(t *testing.T) {
	g := newGraphServer(t)
	g.failUploads.Store(100)
	p := newTestPublisher(t, g, false)
	assets := tempAssets(t, 2)

	outcome, err := p.Publish(context.Background(), "Notice", assets)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedNoMedia, outcome)
	assert.False(t, outcome.Posted())
	assert.Equal(t, int32(0), g.posts.Load(), "no post without media when text-only is off")

	for _, asset := range assets {
		assert.NoFileExists(t, asset.Path, "assets deleted even on skip")
	}
}

func TestPublishTextOnlyWhenAllowed(t *testing.T) {
	g := newGraphServer(t)
	g.failUploads.Store(100)
	p := newTestPublisher(t, g, true)
	assets := tempAssets(t, 1)

	outcome, err := p.Publish(context.Background(), "Notice", assets)

	require.NoError(t, err)
	assert.Equal(t, OutcomePostedTextOnly, outcome)
	assert.True(t, outcome.Posted())
	assert.Equal(t, int32(1), g.posts.Load())

	form := g.lastPost.Load().(map[string][]string)
	assert.NotContains(t, form, "attached_media[0]")
}

func TestPublishVerifiesServerCertificates(t *testing.T) {
	// A server with a self-signed certificate: the document-fetch path
	// would accept it, the publish path must not.
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "media-1"})
	}))
	defer srv.Close()

	cfg := config.PublishConfig{GraphURL: srv.URL, UploadRetries: 1}
	creds := config.Credentials{PageID: "12345", AccessToken: "test-token"}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	p := New(cfg, creds, time.Millisecond, logger)
	assets := tempAssets(t, 1)

	outcome, err := p.Publish(context.Background(), "Notice", assets)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedNoMedia, outcome)
	assert.Equal(t, int32(0), calls.Load(), "untrusted endpoint never reached")
	assert.NoFileExists(t, assets[0].Path)
}

func TestPublishFailedPostDeletesAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := config.PublishConfig{GraphURL: srv.URL, UploadRetries: 1}
	creds := config.Credentials{PageID: "12345", AccessToken: "test-token"}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	p := New(cfg, creds, time.Millisecond, logger)
	assets := tempAssets(t, 1)

	// Uploads fail, text-only off: skip outcome. Then force the text-only
	// path to hit the dead post endpoint.
	outcome, err := p.Publish(context.Background(), "Notice", assets)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedNoMedia, outcome)
	assert.NoFileExists(t, assets[0].Path)

	p.cfg.AllowTextOnly = true
	assets = tempAssets(t, 1)
	outcome, err = p.Publish(context.Background(), "Notice", assets)
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.NoFileExists(t, assets[0].Path, "assets deleted on failure too")
}
