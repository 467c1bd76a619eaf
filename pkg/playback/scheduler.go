// Package playback schedules decoded model audio for gapless output.
//
// Chunks arrive faster than real time, so each one is scheduled to start
// exactly when the previous one ends. A shared clock tracks the end of
// the queued audio; interruption cancels everything pending and resets
// the clock.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/linguakit/lingua-live/pkg/audiocodec"
	"github.com/linguakit/lingua-live/pkg/audioio"
)

// Scheduler owns the output sink and the scheduling clock.
type Scheduler struct {
	sink       audioio.Sink
	clock      Clock
	sampleRate int
	logger     *slog.Logger

	mu        sync.Mutex
	nextStart time.Time
	pending   map[string]Timer
	shutdown  bool
}

// NewScheduler creates a scheduler writing to sink. A nil clock selects
// the system clock.
func NewScheduler(sink audioio.Sink, clock Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sink:       sink,
		clock:      clock,
		sampleRate: sink.Config().SampleRate,
		logger:     logger,
		pending:    map[string]Timer{},
	}
}

// Enqueue decodes a base64 PCM16 payload and schedules it to play when
// the queued audio ends. Malformed payloads are logged and skipped.
func (s *Scheduler) Enqueue(dataB64 string) {
	pcm, err := audiocodec.DecodeText(dataB64)
	if err != nil {
		s.logger.Warn("skipping malformed audio chunk", "err", err)
		return
	}
	buf, err := audiocodec.PCM16ToFloatBuffer(pcm, s.sampleRate, 1)
	if err != nil || buf.NumFrames() == 0 {
		s.logger.Warn("skipping malformed audio chunk", "bytes", len(pcm), "err", err)
		return
	}

	duration := buf.Duration()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return
	}

	now := s.clock.Now()
	startAt := s.nextStart
	if startAt.Before(now) {
		startAt = now
	}
	s.nextStart = startAt.Add(duration)

	id := uuid.NewString()
	s.pending[id] = s.clock.AfterFunc(startAt.Sub(now), func() {
		s.play(id, pcm)
	})
}

func (s *Scheduler) play(id string, pcm []byte) {
	s.mu.Lock()
	if _, ok := s.pending[id]; !ok {
		// Interrupted or shut down after the timer fired.
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.mu.Unlock()

	if err := s.sink.Write(pcm); err != nil {
		s.logger.Warn("sink write failed", "err", err)
	}
}

// Interrupt cancels all scheduled audio, clears the sink buffer and
// resets the clock. No-op when nothing is queued.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	hadPending := len(s.pending) > 0
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.nextStart = time.Time{}
	shutdown := s.shutdown
	s.mu.Unlock()

	if shutdown {
		return
	}
	if hadPending {
		s.logger.Debug("playback interrupted")
	}
	if err := s.sink.Clear(); err != nil {
		s.logger.Warn("sink clear failed", "err", err)
	}
}

// QueuedUntil returns when the queued audio will finish playing.
// The zero time means the queue is empty.
func (s *Scheduler) QueuedUntil() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// PendingCount returns the number of chunks waiting to play.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Shutdown interrupts playback and stops accepting chunks. Idempotent.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.nextStart = time.Time{}
	s.mu.Unlock()

	s.sink.Clear()
	s.logger.Debug("playback scheduler shut down")
}
