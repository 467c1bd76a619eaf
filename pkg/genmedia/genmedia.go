// Package genmedia wraps the generative media collaborators used by the
// tutoring tools: image generation and articulation-video generation.
package genmedia

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultImageModel is the image generation model.
	DefaultImageModel = "imagen-3.0-generate-002"

	// DefaultVideoModel is the video generation model.
	DefaultVideoModel = "veo-2.0-generate-001"
)

// Image is a generated image payload.
type Image struct {
	MIMEType string
	Data     []byte
}

// Video is a generated video saved to local disk.
type Video struct {
	// Path is the local file the video was saved to.
	Path string
}

// ImageGenerator produces an image for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*Image, error)
}

// VideoGenerator produces a video for a prompt, blocking until the
// long-running generation completes.
type VideoGenerator interface {
	Generate(ctx context.Context, prompt string) (*Video, error)
}

// ErrNoResult is returned when generation completes without output,
// typically due to safety filtering.
var ErrNoResult = errors.New("genmedia: generation returned no result")

// IsCredentialError reports whether err indicates invalid or revoked
// credentials. The video API surfaces a bad key as an entity-not-found
// error mid-poll, so that class is treated as a credential failure too.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 401 || apiErr.Code == 403 {
			return true
		}
		if strings.Contains(strings.ToLower(apiErr.Message), "entity was not found") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "entity was not found")
}

// NewClient creates a genai client against the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}
