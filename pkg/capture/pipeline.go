// Package capture turns live microphone input into encoded outbound
// audio payloads for the duration of an open session.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/linguakit/lingua-live/pkg/audiocodec"
	"github.com/linguakit/lingua-live/pkg/audioio"
)

// FrameSize is the number of samples per outbound frame.
const FrameSize = 4096

// Sender receives encoded audio payloads. Satisfied by live.Session.
type Sender interface {
	SendRealtimeAudio(dataB64, mimeType string) error
}

// Pipeline frames microphone audio into fixed-size blocks, quantizes and
// encodes each block, and forwards it to the attached sender. Forwarding
// is fire-and-forget; frames produced while no sender is attached are
// dropped, never buffered.
type Pipeline struct {
	source   audioio.Source
	mimeType string
	logger   *slog.Logger

	mu      sync.Mutex
	sender  Sender
	running bool
	done    chan struct{}

	frame   []float32
	dropped atomic.Int64
}

// NewPipeline creates a capture pipeline reading from source.
func NewPipeline(source audioio.Source, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:   source,
		mimeType: audiocodec.PCMMimeType(source.Config().SampleRate),
		logger:   logger,
		frame:    make([]float32, 0, FrameSize),
	}
}

// Attach sets the sender that receives encoded frames.
func (p *Pipeline) Attach(s Sender) {
	p.mu.Lock()
	p.sender = s
	p.mu.Unlock()
}

// Detach removes the current sender; subsequent frames are dropped.
func (p *Pipeline) Detach() {
	p.Attach(nil)
}

// Start acquires the microphone and begins streaming. A device failure
// is returned to the caller rather than retried here.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if err := p.source.Start(ctx); err != nil {
		return fmt.Errorf("acquire audio device: %w", err)
	}
	p.running = true
	p.done = make(chan struct{})

	go p.run()

	p.logger.Info("capture pipeline started",
		"backend", p.source.Name(),
		"frame_size", FrameSize,
	)
	return nil
}

func (p *Pipeline) run() {
	defer close(p.done)

	for chunk := range p.source.Stream() {
		p.accumulate(chunk.Samples)
	}
}

// accumulate collects samples into fixed-size frames and forwards each
// completed frame.
func (p *Pipeline) accumulate(samples []int16) {
	for _, s := range samples {
		p.frame = append(p.frame, float32(s)/32768)
		if len(p.frame) == FrameSize {
			p.forward(p.frame)
			p.frame = p.frame[:0]
		}
	}
}

func (p *Pipeline) forward(frame []float32) {
	p.mu.Lock()
	sender := p.sender
	p.mu.Unlock()

	if sender == nil {
		// Session not open yet; frames are dropped, never buffered.
		p.dropped.Add(1)
		return
	}

	payload := audiocodec.EncodeBytes(audiocodec.FloatFrameToPCM16(frame))
	if err := sender.SendRealtimeAudio(payload, p.mimeType); err != nil {
		p.logger.Debug("dropping audio frame", "err", err)
	}
}

// Dropped returns how many frames were produced with no sender attached.
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}

// Stop releases the microphone. Safe to call multiple times.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	done := p.done
	p.mu.Unlock()

	p.source.Stop()
	<-done

	p.mu.Lock()
	p.frame = p.frame[:0]
	p.mu.Unlock()

	p.logger.Info("capture pipeline stopped")
}
