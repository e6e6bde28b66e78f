package gen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxErrorBodyBytes = 4096

// HTTPClient drives the generation service over its REST surface. Video
// generation is a long-running operation: start it, poll the operation
// record on a fixed interval until done, then download the produced bytes
// into the media directory. One attempt per call; retry policy belongs to
// the caller.
type HTTPClient struct {
	baseURL      string
	apiKey       string
	mediaDir     string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

func NewHTTPClient(baseURL, apiKey, mediaDir string, pollInterval time.Duration, logger *slog.Logger) *HTTPClient {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:      baseURL,
		apiKey:       apiKey,
		mediaDir:     mediaDir,
		pollInterval: pollInterval,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// operation mirrors the service's long-running operation record. Only the
// fields the poll loop needs are typed; the raw record travels with the
// result for later extension calls.
type operation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		VideoURI string `json:"videoUri"`
	} `json:"response,omitempty"`
}

func (c *HTTPClient) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	payload := map[string]any{
		"prompt":         req.Prompt,
		"negativePrompt": req.NegativePrompt,
		"aspectRatio":    req.AspectRatio,
	}
	if req.ImagePath != "" {
		img, err := os.ReadFile(req.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("read seed image: %w", err)
		}
		payload["image"] = map[string]string{
			"bytesBase64": base64.StdEncoding.EncodeToString(img),
			"mimeType":    "image/png",
		}
	}

	raw, err := c.postJSON(ctx, "/v1/videos:generate", payload)
	if err != nil {
		return nil, err
	}
	return c.awaitVideo(ctx, raw)
}

func (c *HTTPClient) ExtendVideo(ctx context.Context, req ExtendRequest) (*VideoResult, error) {
	if len(req.Operation) == 0 {
		return nil, fmt.Errorf("extend requires a prior operation record")
	}
	raw, err := c.postJSON(ctx, "/v1/videos:extend", map[string]any{
		"operation":   json.RawMessage(req.Operation),
		"prompt":      req.Prompt,
		"aspectRatio": req.AspectRatio,
	})
	if err != nil {
		return nil, err
	}
	return c.awaitVideo(ctx, raw)
}

// awaitVideo polls the operation until done, then downloads the video.
func (c *HTTPClient) awaitVideo(ctx context.Context, raw json.RawMessage) (*VideoResult, error) {
	var op operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, fmt.Errorf("decode operation record: %w", err)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !op.Done {
		c.logger.Debug("generation pending", "operation", op.Name)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		var err error
		raw, err = c.postJSON(ctx, "/v1/operations:get", map[string]any{
			"operation": raw,
		})
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, fmt.Errorf("decode operation record: %w", err)
		}
	}

	if op.Error != nil {
		return nil, classifyBody(op.Error.Code, op.Error.Message)
	}
	if op.Response == nil || op.Response.VideoURI == "" {
		return nil, fmt.Errorf("operation finished without a video URI")
	}

	path, err := c.download(ctx, op.Response.VideoURI)
	if err != nil {
		return nil, err
	}

	finalOp, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("marshal operation record: %w", err)
	}
	c.logger.Info("generation complete", "operation", op.Name, "path", path)
	return &VideoResult{Path: path, Operation: finalOp}, nil
}

// download fetches the produced media into the media directory. The URI
// requires the same key as the API calls, passed as a query parameter per
// the service's download contract.
func (c *HTTPClient) download(ctx context.Context, uri string) (string, error) {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+c.apiKey, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", classifyBody(resp.StatusCode, string(body))
	}

	path := filepath.Join(c.mediaDir, uuid.NewString()+".mp4")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close media file: %w", err)
	}
	return path, nil
}

func (c *HTTPClient) GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	raw, err := c.postJSON(ctx, "/v1/speech:synthesize", map[string]any{
		"text":  req.Text,
		"voice": req.Voice,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		AudioBase64 string `json:"audioBase64"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode speech response: %w", err)
	}
	pcm, err := base64.StdEncoding.DecodeString(out.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode speech audio: %w", err)
	}
	return pcm, nil
}

func (c *HTTPClient) CreativePrompt(ctx context.Context, idea string) (string, string, error) {
	raw, err := c.postJSON(ctx, "/v1/assist:prompt", map[string]any{"idea": idea})
	if err != nil {
		return "", "", err
	}
	var out struct {
		Prompt         string `json:"prompt"`
		NegativePrompt string `json:"negativePrompt"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", "", fmt.Errorf("decode prompt response: %w", err)
	}
	return out.Prompt, out.NegativePrompt, nil
}

func (c *HTTPClient) ShotList(ctx context.Context, script string) ([]Shot, error) {
	raw, err := c.postJSON(ctx, "/v1/assist:shotlist", map[string]any{"script": script})
	if err != nil {
		return nil, err
	}
	var out struct {
		Shots []Shot `json:"shots"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode shot list: %w", err)
	}
	for i := range out.Shots {
		if out.Shots[i].ID == "" {
			out.Shots[i].ID = uuid.NewString()
		}
	}
	return out.Shots, nil
}

func (c *HTTPClient) AnalyzePrompt(ctx context.Context, prompt string) (*PromptAnalysis, error) {
	raw, err := c.postJSON(ctx, "/v1/assist:analyze", map[string]any{"prompt": prompt})
	if err != nil {
		return nil, err
	}
	var out PromptAnalysis
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode prompt analysis: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(respBody) > maxErrorBodyBytes {
			respBody = respBody[:maxErrorBodyBytes]
		}
		return nil, classifyBody(resp.StatusCode, string(respBody))
	}
	return json.RawMessage(respBody), nil
}
