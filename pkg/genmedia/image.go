package genmedia

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiImageGenerator generates images with the Imagen API.
type GeminiImageGenerator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiImageGenerator creates an image generator. An empty model
// selects DefaultImageModel.
func NewGeminiImageGenerator(client *genai.Client, model string, logger *slog.Logger) *GeminiImageGenerator {
	if model == "" {
		model = DefaultImageModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiImageGenerator{client: client, model: model, logger: logger}
}

// Generate produces one image for the prompt.
func (g *GeminiImageGenerator) Generate(ctx context.Context, prompt string) (*Image, error) {
	g.logger.Info("generating image", "model", g.model, "prompt", prompt)

	resp, err := g.client.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, ErrNoResult
	}

	img := resp.GeneratedImages[0].Image
	g.logger.Info("image generated", "mime_type", img.MIMEType, "bytes", len(img.ImageBytes))

	return &Image{
		MIMEType: img.MIMEType,
		Data:     img.ImageBytes,
	}, nil
}

var _ ImageGenerator = (*GeminiImageGenerator)(nil)
