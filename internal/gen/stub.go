package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StubClient stands in when no API key is configured. Video calls produce
// empty placeholder files so the editor path stays exercisable offline;
// assistant calls echo deterministic fixtures.
type StubClient struct {
	mediaDir string
	logger   *slog.Logger
}

func NewStubClient(mediaDir string, logger *slog.Logger) *StubClient {
	return &StubClient{mediaDir: mediaDir, logger: logger}
}

func (c *StubClient) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	c.logger.Info("gen stub: video generation requested", "prompt_len", len(req.Prompt))
	return c.placeholder(req.Prompt)
}

func (c *StubClient) ExtendVideo(ctx context.Context, req ExtendRequest) (*VideoResult, error) {
	c.logger.Info("gen stub: video extension requested")
	return c.placeholder(req.Prompt)
}

func (c *StubClient) placeholder(prompt string) (*VideoResult, error) {
	path := filepath.Join(c.mediaDir, uuid.NewString()+".mp4")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return nil, fmt.Errorf("write placeholder: %w", err)
	}
	op, _ := json.Marshal(map[string]any{
		"name": "operations/stub-" + uuid.NewString(),
		"done": true,
	})
	return &VideoResult{Path: path, Operation: op}, nil
}

func (c *StubClient) GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	c.logger.Info("gen stub: speech synthesis requested", "text_len", len(req.Text))
	// One second of silence at 24 kHz mono 16-bit.
	return make([]byte, 48000), nil
}

func (c *StubClient) CreativePrompt(ctx context.Context, idea string) (string, string, error) {
	return "A cinematic shot of " + idea, "blurry, low quality", nil
}

func (c *StubClient) ShotList(ctx context.Context, script string) ([]Shot, error) {
	return []Shot{{ID: uuid.NewString(), Prompt: script, NegativePrompt: ""}}, nil
}

func (c *StubClient) AnalyzePrompt(ctx context.Context, prompt string) (*PromptAnalysis, error) {
	return &PromptAnalysis{
		Strengths: []string{"clear subject"},
		Improved:  prompt,
	}, nil
}
