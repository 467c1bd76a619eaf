package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
)

// ExecSource captures microphone audio by running an ffmpeg subprocess
// that writes raw s16le PCM to stdout.
type ExecSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}
}

// NewExecSource creates an ffmpeg-backed audio source.
func NewExecSource(cfg Config, logger *slog.Logger) *ExecSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSource{cfg: cfg, logger: logger}
}

// captureArgs builds the ffmpeg arguments for the current platform.
func (s *ExecSource) captureArgs() []string {
	device := s.cfg.Device
	var in []string
	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		in = []string{"-f", "avfoundation", "-i", device}
	default:
		if device == "" {
			device = "default"
		}
		in = []string{"-f", "alsa", "-i", device}
	}
	return append(in,
		"-loglevel", "error",
		"-ac", fmt.Sprintf("%d", s.cfg.Channels),
		"-ar", fmt.Sprintf("%d", s.cfg.SampleRate),
		"-f", "s16le",
		"-",
	)
}

// Start begins capture.
func (s *ExecSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", s.captureArgs()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg capture: %w", err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan AudioChunk, 10)

	go s.readLoop(stdout)

	s.logger.Info("exec audio source started",
		"sample_rate", s.cfg.SampleRate,
		"buffer_ms", s.cfg.BufferDuration.Milliseconds(),
	)
	return nil
}

func (s *ExecSource) readLoop(r io.Reader) {
	// The stream channel is closed here, not in Stop, so a send can never
	// race with the close.
	defer close(s.streamCh)

	buf := make([]byte, s.cfg.BufferBytes())
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if _, err := io.ReadFull(r, buf); err != nil {
			s.logger.Debug("exec source read ended", "err", err)
			return
		}

		chunk := AudioChunk{
			Samples:    BytesToSamples(buf),
			SampleRate: s.cfg.SampleRate,
			Channels:   s.cfg.Channels,
		}
		select {
		case s.streamCh <- chunk:
		default:
			// Consumer is behind; drop the chunk rather than stall capture.
			s.logger.Debug("exec source: buffer full, dropping chunk")
		}
	}
}

// Stop halts capture. Safe to call multiple times.
func (s *ExecSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	close(s.stopCh)

	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.cmd = nil
	s.stdout = nil

	s.logger.Info("exec audio source stopped")
	return nil
}

// Stream returns the audio chunk channel.
func (s *ExecSource) Stream() <-chan AudioChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Config returns the audio configuration.
func (s *ExecSource) Config() Config {
	return s.cfg
}

// Name returns "exec".
func (s *ExecSource) Name() string {
	return "exec"
}

// Close releases resources.
func (s *ExecSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

var _ Source = (*ExecSource)(nil)
