package genmedia

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/linguakit/lingua-live/internal/httpc"
)

// DefaultPollInterval is how often a pending video operation is checked.
const DefaultPollInterval = 10 * time.Second

// VeoVideoGenerator generates short videos with the Veo API. Generation
// is a long-running operation, so Generate polls until completion and
// then downloads the result to local disk.
type VeoVideoGenerator struct {
	client       *genai.Client
	model        string
	apiKey       string
	outDir       string
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewVeoVideoGenerator creates a video generator. Empty model selects
// DefaultVideoModel; empty outDir selects the OS temp directory.
func NewVeoVideoGenerator(client *genai.Client, model, apiKey, outDir string, logger *slog.Logger) *VeoVideoGenerator {
	if model == "" {
		model = DefaultVideoModel
	}
	if outDir == "" {
		outDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VeoVideoGenerator{
		client:       client,
		model:        model,
		apiKey:       apiKey,
		outDir:       outDir,
		pollInterval: DefaultPollInterval,
		logger:       logger,
	}
}

// Generate produces a video for the prompt, blocking until the remote
// operation completes, and saves the result locally.
func (g *VeoVideoGenerator) Generate(ctx context.Context, prompt string) (*Video, error) {
	g.logger.Info("generating video", "model", g.model, "prompt", prompt)

	op, err := g.client.Models.GenerateVideos(ctx, g.model, prompt, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("start video generation: %w", err)
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.pollInterval):
		}

		op, err = g.client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, fmt.Errorf("poll video operation: %w", err)
		}
		g.logger.Debug("video operation polled", "done", op.Done)
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, ErrNoResult
	}
	video := op.Response.GeneratedVideos[0].Video
	if video == nil {
		return nil, ErrNoResult
	}

	path := filepath.Join(g.outDir, uuid.NewString()+".mp4")
	if len(video.VideoBytes) > 0 {
		if err := os.WriteFile(path, video.VideoBytes, 0o644); err != nil {
			return nil, fmt.Errorf("save video: %w", err)
		}
	} else if video.URI != "" {
		if err := g.download(ctx, video.URI, path); err != nil {
			return nil, err
		}
	} else {
		return nil, ErrNoResult
	}

	g.logger.Info("video generated", "path", path)
	return &Video{Path: path}, nil
}

// download fetches the video resource. The file endpoint requires the
// API key as a query parameter.
func (g *VeoVideoGenerator) download(ctx context.Context, rawURL, path string) error {
	fetchURL := rawURL
	if g.apiKey != "" && !strings.Contains(rawURL, "key=") {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		fetchURL = rawURL + sep + "key=" + url.QueryEscape(g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return fmt.Errorf("build video request: %w", err)
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("fetch video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch video: unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create video file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return fmt.Errorf("write video file: %w", err)
	}
	return nil
}

var _ VideoGenerator = (*VeoVideoGenerator)(nil)
