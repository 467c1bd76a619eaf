package tutor

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/linguakit/lingua-live/pkg/live"
	"github.com/linguakit/lingua-live/pkg/playback"
	"github.com/linguakit/lingua-live/pkg/transcript"
)

// ToolResponder sends tool acknowledgements back over the session.
// Satisfied by live.Session.
type ToolResponder interface {
	SendToolResponses(responses ...live.FunctionResponse) error
}

// Dispatcher demultiplexes the ordered inbound message stream into
// transcript updates, tool dispatch, audio playback and turn control.
// Handle is called from a single goroutine (the session read loop), which
// preserves cross-message ordering; tool calls fan out concurrently.
type Dispatcher struct {
	scheduler *playback.Scheduler
	router    *Router
	log       *transcript.Log
	logger    *slog.Logger

	mu       sync.Mutex
	userAcc  strings.Builder
	modelAcc strings.Builder
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(scheduler *playback.Scheduler, router *Router, log *transcript.Log, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		scheduler: scheduler,
		router:    router,
		log:       log,
		logger:    logger,
	}
}

// Router returns the tool router.
func (d *Dispatcher) Router() *Router { return d.router }

// Handle applies one inbound message. A message may carry any
// combination of transcription deltas, tool calls, audio and turn
// signals; each is applied independently.
func (d *Dispatcher) Handle(ctx context.Context, msg live.ServerMessage, responder ToolResponder) {
	if msg.ToolCall != nil {
		d.dispatchTools(ctx, msg.ToolCall.FunctionCalls, responder)
	}
	if sc := msg.ServerContent; sc != nil {
		d.handleContent(sc)
	}
}

func (d *Dispatcher) handleContent(sc *live.ServerContent) {
	if sc.InputTranscription != nil {
		d.mu.Lock()
		d.userAcc.WriteString(sc.InputTranscription.Text)
		d.mu.Unlock()
	}
	if sc.OutputTranscription != nil {
		d.mu.Lock()
		d.modelAcc.WriteString(sc.OutputTranscription.Text)
		d.mu.Unlock()
	}

	for _, audio := range sc.AudioParts() {
		d.scheduler.Enqueue(audio.Data)
	}

	if sc.TurnComplete {
		d.flushTurn()
	}
	if sc.Interrupted {
		d.logger.Debug("model interrupted by user speech")
		d.scheduler.Interrupt()
	}
}

// dispatchTools begins each call synchronously in the order given, so the
// router sees them in arrival order; the call bodies run concurrently and
// each acknowledgement is sent as its call completes, keyed by
// invocation ID.
func (d *Dispatcher) dispatchTools(ctx context.Context, calls []live.FunctionCall, responder ToolResponder) {
	for _, call := range calls {
		run := d.router.Begin(ctx, call)
		go func(call live.FunctionCall, run func() live.FunctionResponse) {
			resp := run()
			if err := responder.SendToolResponses(resp); err != nil {
				d.logger.Warn("tool acknowledgement failed", "id", call.ID, "err", err)
			}
		}(call, run)
	}
}

// flushTurn snapshots both accumulators and appends non-empty text as
// transcript entries, user first, then clears the accumulators.
func (d *Dispatcher) flushTurn() {
	d.mu.Lock()
	user := strings.TrimSpace(d.userAcc.String())
	model := strings.TrimSpace(d.modelAcc.String())
	d.userAcc.Reset()
	d.modelAcc.Reset()
	d.mu.Unlock()

	if user != "" {
		d.log.Append(transcript.NewTextEntry(transcript.AuthorUser, user))
	}
	if model != "" {
		d.log.Append(transcript.NewTextEntry(transcript.AuthorModel, model))
	}
}

// Reset clears both accumulators. Called on session teardown.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.userAcc.Reset()
	d.modelAcc.Reset()
	d.mu.Unlock()
}
