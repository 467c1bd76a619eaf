package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/linguakit/lingua-live/pkg/genmedia"
	"github.com/linguakit/lingua-live/pkg/live"
	"github.com/linguakit/lingua-live/pkg/transcript"
)

// Tool names recognized by the router.
const (
	ToolUpdatePhase          = "update_phase"
	ToolExplainPronunciation = "explain_pronunciation"
	ToolShowImage            = "show_image"
	ToolShowVideo            = "show_articulation_video"
)

// Router maps tool invocations to side effects and produces exactly one
// acknowledgement per invocation.
type Router struct {
	phase  *transcript.PhaseState
	log    *transcript.Log
	images genmedia.ImageGenerator
	videos genmedia.VideoGenerator
	logger *slog.Logger

	generatingImage atomic.Bool
	generatingVideo atomic.Bool

	// OnCredentialFailure is called when video generation fails with an
	// invalid-credential error. The session must be stopped.
	OnCredentialFailure func()
}

// NewRouter creates a tool router.
func NewRouter(phase *transcript.PhaseState, log *transcript.Log, images genmedia.ImageGenerator, videos genmedia.VideoGenerator, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		phase:  phase,
		log:    log,
		images: images,
		videos: videos,
		logger: logger,
	}
}

// GeneratingImage reports whether an image generation is in flight.
func (r *Router) GeneratingImage() bool { return r.generatingImage.Load() }

// GeneratingVideo reports whether a video generation is in flight.
func (r *Router) GeneratingVideo() bool { return r.generatingVideo.Load() }

// Dispatch runs one tool call to completion and returns its
// acknowledgement, keyed to the invocation ID.
func (r *Router) Dispatch(ctx context.Context, call live.FunctionCall) live.FunctionResponse {
	return r.Begin(ctx, call)()
}

// Begin records the invocation and raises its in-flight generation flag
// synchronously, so a caller dispatching several calls can start them in
// arrival order before detaching. The returned func runs the call to
// completion, clears the flag and produces the acknowledgement.
func (r *Router) Begin(ctx context.Context, call live.FunctionCall) func() live.FunctionResponse {
	r.logger.Info("tool call", "name", call.Name, "id", call.ID)

	var run func() string
	cleanup := func() {}
	switch call.Name {
	case ToolUpdatePhase:
		run = func() string { return r.updatePhase(call.Args) }
	case ToolExplainPronunciation:
		run = func() string { return r.explainPronunciation(call.Args) }
	case ToolShowImage:
		r.generatingImage.Store(true)
		cleanup = func() { r.generatingImage.Store(false) }
		run = func() string { return r.showImage(ctx, call.Args) }
	case ToolShowVideo:
		r.generatingVideo.Store(true)
		cleanup = func() { r.generatingVideo.Store(false) }
		run = func() string { return r.showVideo(ctx, call.Args) }
	default:
		r.logger.Warn("unrecognized tool", "name", call.Name)
		run = func() string { return fmt.Sprintf("Unknown tool: %s", call.Name) }
	}

	return func() live.FunctionResponse {
		defer cleanup()
		return live.NewFunctionResponse(call.ID, call.Name, run())
	}
}

func (r *Router) updatePhase(args map[string]any) string {
	phase := stringArg(args, "phase")
	age := stringArg(args, "linguistic_age")
	r.phase.Set(transcript.Phase{Name: phase, LinguisticAge: age})
	r.logger.Info("phase updated", "phase", phase, "linguistic_age", age)
	return "Phase updated"
}

func (r *Router) explainPronunciation(args map[string]any) string {
	r.log.Append(transcript.NewPronunciationEntry(
		stringArg(args, "word"),
		stringArg(args, "approximation"),
		stringArg(args, "explanation"),
	))
	return "Pronunciation explained"
}

func (r *Router) showImage(ctx context.Context, args map[string]any) string {
	prompt := stringArg(args, "prompt")

	if r.images == nil {
		r.logger.Warn("image generation unavailable", "prompt", prompt)
		return fmt.Sprintf("Failed to show image for: %s", prompt)
	}

	img, err := r.images.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("image generation failed", "prompt", prompt, "err", err)
		return fmt.Sprintf("Failed to show image for: %s", prompt)
	}

	r.log.Append(transcript.NewImageEntry(prompt, img.MIMEType, img.Data))
	return fmt.Sprintf("Displayed image for: %s", prompt)
}

func (r *Router) showVideo(ctx context.Context, args map[string]any) string {
	prompt := stringArg(args, "prompt")

	if r.videos == nil {
		r.logger.Warn("video generation unavailable", "prompt", prompt)
		return fmt.Sprintf("Failed to show video for: %s", prompt)
	}

	vid, err := r.videos.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("video generation failed", "prompt", prompt, "err", err)
		if genmedia.IsCredentialError(err) && r.OnCredentialFailure != nil {
			// An invalid credential surfaces here as entity-not-found.
			// This is the one tool failure that ends the session.
			r.OnCredentialFailure()
		}
		return fmt.Sprintf("Failed to show video for: %s", prompt)
	}

	r.log.Append(transcript.NewVideoEntry(prompt, vid.Path))
	return fmt.Sprintf("Displayed video for: %s", prompt)
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
