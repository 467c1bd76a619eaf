package tutor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linguakit/lingua-live/pkg/audioio"
	"github.com/linguakit/lingua-live/pkg/capture"
	"github.com/linguakit/lingua-live/pkg/genmedia"
	"github.com/linguakit/lingua-live/pkg/live"
	"github.com/linguakit/lingua-live/pkg/playback"
	"github.com/linguakit/lingua-live/pkg/transcript"
)

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// APIKey is the Google API key used for the live session and media
	// generation.
	APIKey string

	// Model is the live conversation model.
	Model string

	// Voice is the prebuilt synthesis voice name.
	Voice string

	// ImageModel and VideoModel select the media generation models.
	// Empty selects the defaults.
	ImageModel string
	VideoModel string

	// AudioBackend selects the capture/playback backend.
	AudioBackend audioio.Backend

	// MediaDir is where generated videos are saved. Empty selects the
	// OS temp directory.
	MediaDir string
}

// Validate checks required fields.
func (c AppConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// App wires the audio pipelines, the dispatcher and the lifecycle
// manager into one runnable unit.
type App struct {
	cfg    AppConfig
	logger *slog.Logger

	source    audioio.Source
	sink      audioio.Sink
	scheduler *playback.Scheduler

	Log     *transcript.Log
	Phase   *transcript.PhaseState
	Manager *Manager
}

// NewApp builds the full component graph. The genai client is only
// created when an API key is present; without one the app still starts
// and Start reports the missing-key precondition.
func NewApp(ctx context.Context, cfg AppConfig, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	srcCfg := audioio.DefaultConfig()
	srcCfg.Backend = cfg.AudioBackend
	source, err := audioio.NewSource(srcCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create audio source: %w", err)
	}

	sinkCfg := audioio.PlaybackConfig()
	sinkCfg.Backend = cfg.AudioBackend
	sink, err := audioio.NewSink(sinkCfg, logger)
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("create audio sink: %w", err)
	}
	if err := sink.Start(ctx); err != nil {
		source.Close()
		sink.Close()
		return nil, fmt.Errorf("start audio sink: %w", err)
	}

	log := transcript.NewLog()
	phase := transcript.NewPhaseState(transcript.Phase{Name: "greeting", LinguisticAge: "toddler"})

	var images genmedia.ImageGenerator
	var videos genmedia.VideoGenerator
	if cfg.APIKey != "" {
		client, err := genmedia.NewClient(ctx, cfg.APIKey)
		if err != nil {
			source.Close()
			sink.Close()
			return nil, err
		}
		images = genmedia.NewGeminiImageGenerator(client, cfg.ImageModel, logger)
		videos = genmedia.NewVeoVideoGenerator(client, cfg.VideoModel, cfg.APIKey, cfg.MediaDir, logger)
	}

	router := NewRouter(phase, log, images, videos, logger)
	scheduler := playback.NewScheduler(sink, nil, logger)
	dispatcher := NewDispatcher(scheduler, router, log, logger)
	pipeline := capture.NewPipeline(source, logger)

	liveCfg := live.Config{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		Voice:             cfg.Voice,
		SystemInstruction: SystemInstruction,
		Tools:             ToolDeclarations(),
	}
	manager := NewManager(liveCfg, pipeline, scheduler, dispatcher, phase, logger)

	router.OnCredentialFailure = func() {
		manager.NoteError("credential rejected, session stopped")
		go manager.Stop()
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		source:    source,
		sink:      sink,
		scheduler: scheduler,
		Log:       log,
		Phase:     phase,
		Manager:   manager,
	}, nil
}

// Shutdown stops the session and releases the audio devices.
func (a *App) Shutdown() {
	a.Manager.Stop()
	a.scheduler.Shutdown()
	a.sink.Close()
	a.source.Close()
	a.logger.Info("app shut down")
}
