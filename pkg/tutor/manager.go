package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linguakit/lingua-live/pkg/capture"
	"github.com/linguakit/lingua-live/pkg/live"
	"github.com/linguakit/lingua-live/pkg/playback"
	"github.com/linguakit/lingua-live/pkg/transcript"
)

// State is the lifecycle state of the session manager.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
)

const (
	maxRetries     = 3
	retryBaseDelay = 1000 * time.Millisecond
)

// LiveSession is the subset of live.Session the manager drives.
type LiveSession interface {
	SendRealtimeAudio(dataB64, mimeType string) error
	SendToolResponses(responses ...live.FunctionResponse) error
	Messages() <-chan live.ServerMessage
	Err() error
	Close() error
}

// DialFunc opens a live session. Injectable for tests.
type DialFunc func(ctx context.Context, cfg live.Config) (LiveSession, error)

func defaultDial(ctx context.Context, cfg live.Config) (LiveSession, error) {
	return live.Connect(ctx, cfg)
}

// Status is the manager state exposed to the presentation layer.
type Status struct {
	State           State            `json:"state"`
	Phase           transcript.Phase `json:"phase"`
	GeneratingImage bool             `json:"generating_image"`
	GeneratingVideo bool             `json:"generating_video"`
	LastError       string           `json:"last_error,omitempty"`
}

// Manager owns the session lifecycle: connect, retry with backoff,
// teardown. At most one session and one retry timer are live at a time.
type Manager struct {
	liveCfg    live.Config
	pipeline   *capture.Pipeline
	scheduler  *playback.Scheduler
	dispatcher *Dispatcher
	phase      *transcript.PhaseState
	logger     *slog.Logger

	// Dial and Clock are swappable for tests.
	Dial  DialFunc
	Clock playback.Clock

	mu            sync.Mutex
	state         State
	session       LiveSession
	retryCount    int
	retryTimer    playback.Timer
	expectedClose bool
	lastErr       string
	generation    int // bumped on every stop to invalidate stale callbacks
}

// NewManager creates a lifecycle manager.
func NewManager(liveCfg live.Config, pipeline *capture.Pipeline, scheduler *playback.Scheduler, dispatcher *Dispatcher, phase *transcript.PhaseState, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		liveCfg:    liveCfg,
		pipeline:   pipeline,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		phase:      phase,
		logger:     logger,
		Dial:       defaultDial,
		Clock:      playback.SystemClock(),
		state:      StateIdle,
	}
}

// Start begins a connection sequence. A no-op unless idle. An absent
// API key is a precondition failure and never reaches the retry path.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return nil
	}
	if m.liveCfg.APIKey == "" {
		m.lastErr = "no API key configured"
		m.mu.Unlock()
		return fmt.Errorf("no API key configured")
	}

	m.state = StateConnecting
	m.retryCount = 0
	m.expectedClose = false
	gen := m.generation
	m.mu.Unlock()

	m.logger.Info("session starting")
	go m.connect(gen)
	return nil
}

// connect performs one connection attempt.
func (m *Manager) connect(gen int) {
	ctx := context.Background()

	if err := m.pipeline.Start(ctx); err != nil {
		m.connectFailed(gen, err)
		return
	}

	session, err := m.Dial(ctx, m.liveCfg)
	if err != nil {
		m.pipeline.Stop()
		m.connectFailed(gen, err)
		return
	}

	m.mu.Lock()
	if m.generation != gen || m.state != StateConnecting {
		// Stopped while dialing.
		m.mu.Unlock()
		session.Close()
		m.pipeline.Stop()
		return
	}
	m.session = session
	m.state = StateOpen
	m.lastErr = ""
	m.mu.Unlock()

	m.pipeline.Attach(session)
	go m.readLoop(gen, session)

	m.logger.Info("session open")
}

// connectFailed schedules a retry with exponential backoff, or goes
// terminal after the retry budget is spent.
func (m *Manager) connectFailed(gen int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen || m.state != StateConnecting {
		return
	}

	if m.retryCount < maxRetries {
		delay := retryBaseDelay << m.retryCount
		m.retryCount++
		m.logger.Warn("connection failed, retrying",
			"err", err,
			"attempt", m.retryCount,
			"delay", delay,
		)
		m.retryTimer = m.Clock.AfterFunc(delay, func() {
			m.mu.Lock()
			stale := m.generation != gen || m.state != StateConnecting
			m.mu.Unlock()
			if stale {
				return
			}
			m.connect(gen)
		})
		return
	}

	m.state = StateIdle
	m.lastErr = fmt.Sprintf("connection failed: %v", err)
	m.logger.Error("connection failed, giving up", "err", err)
}

// readLoop pumps session messages into the dispatcher. When the channel
// closes without a requested stop, the close is unexpected: no retry,
// back to idle with a lost-connection error.
func (m *Manager) readLoop(gen int, session LiveSession) {
	ctx := context.Background()
	for msg := range session.Messages() {
		m.dispatcher.Handle(ctx, msg, session)
	}

	m.mu.Lock()
	if m.generation != gen || m.expectedClose {
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.session = nil
	m.lastErr = "connection lost"
	m.generation++
	m.mu.Unlock()

	m.logger.Warn("session closed unexpectedly", "err", session.Err())
	if err := session.Close(); err != nil {
		// Close failures never block teardown.
		m.logger.Warn("session close failed", "err", err)
	}
	m.teardownResources()
}

// Stop ends the session. Safe when idle, mid-connection or mid-backoff;
// a pending retry timer is cancelled and never fires a new attempt.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.expectedClose = true
	m.generation++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	session := m.session
	m.session = nil
	wasIdle := m.state == StateIdle
	m.state = StateIdle
	m.mu.Unlock()

	if session != nil {
		if err := session.Close(); err != nil {
			// Close failures never block teardown.
			m.logger.Warn("session close failed", "err", err)
		}
	}
	m.teardownResources()

	if !wasIdle {
		m.logger.Info("session stopped")
	}
}

func (m *Manager) teardownResources() {
	m.pipeline.Detach()
	m.pipeline.Stop()
	m.scheduler.Interrupt()
	m.dispatcher.Reset()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the current user-visible error message, if any.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// NoteError overwrites the user-visible error slot.
func (m *Manager) NoteError(msg string) {
	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()
}

// Status returns a consistent snapshot for the presentation layer.
func (m *Manager) Status() Status {
	m.mu.Lock()
	state := m.state
	lastErr := m.lastErr
	m.mu.Unlock()

	router := m.dispatcher.Router()
	return Status{
		State:           state,
		Phase:           m.phase.Get(),
		GeneratingImage: router.GeneratingImage(),
		GeneratingVideo: router.GeneratingVideo(),
		LastError:       lastErr,
	}
}
