package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
)

// ExecSink plays audio by piping raw s16le PCM into an ffplay subprocess.
// Clear restarts the subprocess, which discards anything ffplay had
// buffered but not yet rendered.
type ExecSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	running bool
	closed  bool

	chunksWritten atomic.Int64
	bytesWritten  atomic.Int64
}

// NewExecSink creates an ffplay-backed audio sink.
func NewExecSink(cfg Config, logger *slog.Logger) *ExecSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecSink{cfg: cfg, logger: logger}
}

// Start launches ffplay reading PCM from stdin.
func (s *ExecSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}
	if err := s.startLocked(); err != nil {
		return err
	}

	s.logger.Info("exec audio sink started", "sample_rate", s.cfg.SampleRate)
	return nil
}

func (s *ExecSink) startLocked() error {
	chLayout := "mono"
	if s.cfg.Channels == 2 {
		chLayout = "stereo"
	}
	cmd := exec.Command("ffplay",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-nodisp",
		"-autoexit",
		"-f", "s16le",
		"-ch_layout", chLayout,
		"-ar", fmt.Sprintf("%d", s.cfg.SampleRate),
		"-i", "-",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("start ffplay: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	s.running = true
	return nil
}

func (s *ExecSink) stopLocked() {
	if s.stdin != nil {
		s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.cmd = nil
	s.running = false
}

// Stop halts playback. Safe to call multiple times.
func (s *ExecSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.stopLocked()
	s.logger.Info("exec audio sink stopped")
	return nil
}

// Write sends PCM16 bytes to the output process.
func (s *ExecSink) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.running || s.stdin == nil {
		return io.ErrClosedPipe
	}
	if _, err := s.stdin.Write(data); err != nil {
		// Process died; restart so the next write can succeed.
		s.stopLocked()
		if rerr := s.startLocked(); rerr != nil {
			return fmt.Errorf("write to ffplay: %w", err)
		}
		if _, err := s.stdin.Write(data); err != nil {
			return fmt.Errorf("write to ffplay after restart: %w", err)
		}
	}
	s.chunksWritten.Add(1)
	s.bytesWritten.Add(int64(len(data)))
	return nil
}

// Clear discards buffered audio by restarting the output process.
func (s *ExecSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.stopLocked()
	return s.startLocked()
}

// Config returns the audio configuration.
func (s *ExecSink) Config() Config {
	return s.cfg
}

// Name returns "exec".
func (s *ExecSink) Name() string {
	return "exec"
}

// Close releases resources.
func (s *ExecSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopLocked()
	s.mu.Unlock()
	return nil
}

// Stats returns sink statistics.
func (s *ExecSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	return SinkStats{
		ChunksWritten: s.chunksWritten.Load(),
		BytesWritten:  s.bytesWritten.Load(),
		Running:       running,
		Backend:       "exec",
	}
}

var _ SinkWithStats = (*ExecSink)(nil)
