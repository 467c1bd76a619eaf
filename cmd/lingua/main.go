// lingua-live - conversational language tutor over the Gemini Live API.
// Streams microphone audio to the model, plays back synthesized speech
// and serves the lesson state to a local web frontend.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/linguakit/lingua-live/internal/config"
	"github.com/linguakit/lingua-live/internal/log"
	"github.com/linguakit/lingua-live/pkg/audioio"
	"github.com/linguakit/lingua-live/pkg/tutor"
	"github.com/linguakit/lingua-live/pkg/web"
)

func main() {
	var (
		logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		port     = flag.String("port", config.WebPort(), "Web API port")
		model    = flag.String("model", config.LiveModel(), "Live conversation model")
		voice    = flag.String("voice", config.DefaultVoice, "Synthesis voice name")
		backend  = flag.String("audio", string(audioio.BackendAuto), audioBackendUsage())
		mediaDir = flag.String("media-dir", "", "Directory for generated videos (default: temp dir)")
		autoRun  = flag.Bool("start", false, "Start the session immediately")
	)
	flag.Parse()

	log.Init(*logLevel)
	logger := log.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := tutor.AppConfig{
		APIKey:       config.GoogleAPIKey(),
		Model:        *model,
		Voice:        *voice,
		AudioBackend: audioio.Backend(*backend),
		MediaDir:     *mediaDir,
	}

	app, err := tutor.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	if cfg.APIKey == "" {
		logger.Warn("no API key set; sessions cannot start until GEMINI_API_KEY or GOOGLE_API_KEY is provided")
	}

	server := web.NewServer(*port, app.Manager, app.Log, logger)
	server.StartAsync()
	defer server.Shutdown()

	if *autoRun {
		if err := app.Manager.Start(); err != nil {
			logger.Error("session start failed", "err", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")
}

// audioBackendUsage lists the backends usable on this machine.
func audioBackendUsage() string {
	names := []string{string(audioio.BackendAuto)}
	for _, b := range audioio.AvailableBackends() {
		names = append(names, string(b))
	}
	return "Audio backend, one of: " + strings.Join(names, ", ")
}
