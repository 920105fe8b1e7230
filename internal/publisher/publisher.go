// Package publisher posts one social-media entry per notice through the
// Graph-style page API: each asset is uploaded as unpublished media, then a
// single feed post references every media id that made it.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"campus-notice-bot/internal/config"
	"campus-notice-bot/internal/media"
	"campus-notice-bot/internal/retry"
)

type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomePostedWithMedia
	OutcomePostedTextOnly
	OutcomeSkippedNoMedia
)

func (o Outcome) String() string {
	switch o {
	case OutcomePostedWithMedia:
		return "posted-with-media"
	case OutcomePostedTextOnly:
		return "posted-text-only"
	case OutcomeSkippedNoMedia:
		return "skipped-no-media"
	default:
		return "failed"
	}
}

// Posted reports whether the outcome represents a created post.
func (o Outcome) Posted() bool {
	return o == OutcomePostedWithMedia || o == OutcomePostedTextOnly
}

type Publisher struct {
	client *http.Client
	creds  config.Credentials
	cfg    config.PublishConfig
	policy retry.Policy
	logger *slog.Logger
}

// New builds a Publisher. The HTTP client here uses standard certificate
// verification; the relaxed-TLS transport of the fetch path must never
// reach these calls.
func New(cfg config.PublishConfig, creds config.Credentials, retryDelay time.Duration, logger *slog.Logger) *Publisher {
	timeout := 30 * time.Second
	if cfg.TotalTimeoutMS > 0 {
		timeout = time.Duration(cfg.TotalTimeoutMS) * time.Millisecond
	}
	return &Publisher{
		client: &http.Client{Timeout: timeout},
		creds:  creds,
		cfg:    cfg,
		policy: retry.Exponential(cfg.UploadRetries, retryDelay, 8*retryDelay, 0),
		logger: logger.With("component", "publisher"),
	}
}

// Publish uploads the assets and creates exactly one post. Every asset
// file is deleted before return, whatever the outcome. Assets whose upload
// exhausts its retries are omitted from the post, not fatal. With zero
// successful uploads the behavior follows AllowTextOnly: post the message
// anyway, or skip so the notice is retried on a later run.
func (p *Publisher) Publish(ctx context.Context, message string, assets []media.Asset) (Outcome, error) {
	defer media.Cleanup(assets, p.logger)

	var mediaIDs []string
	for _, asset := range assets {
		id, err := p.uploadAsset(ctx, asset)
		if err != nil {
			p.logger.Warn("asset upload failed, omitting from post",
				"path", asset.Path, "page", asset.PageNum, "error", err.Error())
			continue
		}
		mediaIDs = append(mediaIDs, id)
	}

	if len(assets) > 0 && len(mediaIDs) == 0 && !p.cfg.AllowTextOnly {
		p.logger.Info("no media survived upload, skipping post", "assets", len(assets))
		return OutcomeSkippedNoMedia, nil
	}

	if err := p.createPost(ctx, message, mediaIDs); err != nil {
		return OutcomeFailed, err
	}

	if len(mediaIDs) > 0 {
		return OutcomePostedWithMedia, nil
	}
	return OutcomePostedTextOnly, nil
}

// uploadAsset pushes one image as unpublished media and returns its
// reference id. Bounded retries with backoff per asset.
func (p *Publisher) uploadAsset(ctx context.Context, asset media.Asset) (string, error) {
	var mediaID string
	err := retry.Do(ctx, p.policy, func(ctx context.Context) error {
		id, err := p.uploadOnce(ctx, asset.Path)
		if err != nil {
			return err
		}
		mediaID = id
		return nil
	})
	return mediaID, err
}

func (p *Publisher) uploadOnce(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open asset: %w", err)
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("source", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read asset: %w", err)
	}
	if err := writer.WriteField("published", "false"); err != nil {
		return "", err
	}
	if err := writer.WriteField("access_token", p.creds.AccessToken); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/photos", p.cfg.GraphURL, p.creds.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result struct {
		ID string `json:"id"`
	}
	if err := p.doJSON(req, &result); err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("upload media: empty id in response")
	}

	p.logger.Debug("media uploaded", "path", path, "media_id", result.ID)
	return result.ID, nil
}

// createPost issues the single create-post call for this notice.
func (p *Publisher) createPost(ctx context.Context, message string, mediaIDs []string) error {
	form := url.Values{}
	form.Set("message", message)
	form.Set("access_token", p.creds.AccessToken)
	for i, id := range mediaIDs {
		ref, err := json.Marshal(map[string]string{"media_fbid": id})
		if err != nil {
			return err
		}
		form.Set(fmt.Sprintf("attached_media[%d]", i), string(ref))
	}

	endpoint := fmt.Sprintf("%s/%s/feed", p.cfg.GraphURL, p.creds.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result struct {
		ID string `json:"id"`
	}
	if err := p.doJSON(req, &result); err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	p.logger.Info("post created", "post_id", result.ID, "media_count", len(mediaIDs))
	return nil
}

func (p *Publisher) doJSON(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
