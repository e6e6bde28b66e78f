// Package gen talks to the video generation service: text/image to video,
// extending a previous generation, speech synthesis, and the prompt-side
// assistants. The service's operation records are carried opaquely; the
// agent never interprets their internals beyond done/error/URI.
package gen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// credentialMarker is the service's distinctive error text for an invalid
// or missing API key entity. Classification keys on this substring
// anywhere in the error body.
const credentialMarker = "Requested entity was not found."

// CredentialError marks a failure caused by an invalid API key rather than
// by the request itself. Callers surface it as a re-auth prompt instead of
// a generation failure.
type CredentialError struct {
	Body string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("generation credentials rejected: %s", e.Body)
}

// IsCredentialError reports whether err (anywhere in its chain) is a
// credential rejection.
func IsCredentialError(err error) bool {
	var ce *CredentialError
	return errors.As(err, &ce)
}

// classifyBody wraps a service error body, detecting credential failures
// by their marker text.
func classifyBody(status int, body string) error {
	if strings.Contains(body, credentialMarker) {
		return &CredentialError{Body: body}
	}
	return fmt.Errorf("generation service error: HTTP %d: %s", status, body)
}

// VideoRequest describes one video generation. ImagePath, when set, seeds
// the generation with a still frame.
type VideoRequest struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	ImagePath      string
}

// VideoResult is a finished generation downloaded to local disk. Operation
// is the service's full operation record, kept for later extension.
type VideoResult struct {
	Path      string
	Operation json.RawMessage
}

// ExtendRequest continues a previous generation from its operation record.
type ExtendRequest struct {
	Operation   json.RawMessage
	Prompt      string
	AspectRatio string
}

// SpeechRequest synthesizes narration. The result is raw PCM in the
// service's fixed output format; callers wrap it in a WAV container.
type SpeechRequest struct {
	Text  string
	Voice string
}

// Shot is one entry of a generated shot list.
type Shot struct {
	ID             string `json:"id"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negativePrompt"`
}

// PromptAnalysis is the assistant's critique of a draft prompt.
type PromptAnalysis struct {
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Improved    string   `json:"improved"`
	Explanation string   `json:"explanation"`
}

type Client interface {
	GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error)
	ExtendVideo(ctx context.Context, req ExtendRequest) (*VideoResult, error)
	GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error)
	CreativePrompt(ctx context.Context, idea string) (prompt, negativePrompt string, err error)
	ShotList(ctx context.Context, script string) ([]Shot, error)
	AnalyzePrompt(ctx context.Context, prompt string) (*PromptAnalysis, error)
}
