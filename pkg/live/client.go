// Package live implements a client for the Gemini Live API, a
// bidirectional websocket protocol for low-latency speech-to-speech
// conversations with tool use.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultEndpoint is the production Live API websocket endpoint.
const DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

const (
	handshakeTimeout = 10 * time.Second
	setupTimeout     = 15 * time.Second
	readTimeout      = 120 * time.Second
	writeTimeout     = 10 * time.Second
	pingInterval     = 30 * time.Second
)

// Config describes one live session.
type Config struct {
	// APIKey authenticates the connection. Required.
	APIKey string

	// Model is the live model name, without the "models/" prefix.
	Model string

	// Voice selects the prebuilt synthesis voice.
	Voice string

	// SystemInstruction is the session-level instruction text.
	SystemInstruction string

	// Tools are the function declarations advertised to the model.
	Tools []FunctionDeclaration

	// Endpoint overrides DefaultEndpoint. Used by tests.
	Endpoint string
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// Session is a single-use handle on an open live connection. Once closed
// it cannot be reused; reconnection means a new Connect call.
type Session struct {
	ws     *websocket.Conn
	wsMu   sync.Mutex
	logger *slog.Logger

	messages chan ServerMessage
	done     chan struct{}

	closeOnce sync.Once

	errMu   sync.Mutex
	readErr error
}

// Connect dials the live endpoint, sends the setup frame and waits for
// the service to confirm it. The returned session is ready for audio.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	url := fmt.Sprintf("%s?key=%s", endpoint, cfg.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}

	s := &Session{
		ws:       ws,
		logger:   slog.Default(),
		messages: make(chan ServerMessage, 16),
		done:     make(chan struct{}),
	}

	ws.SetPingHandler(func(appData string) error {
		s.wsMu.Lock()
		defer s.wsMu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
	})

	if err := s.setup(cfg); err != nil {
		ws.Close()
		return nil, err
	}

	go s.readLoop()
	go s.keepAlive()

	s.logger.Info("live session open", "model", cfg.Model, "voice", cfg.Voice)
	return s, nil
}

// setup sends the session configuration and blocks until setupComplete.
func (s *Session) setup(cfg Config) error {
	msg := setupMessage{
		Setup: setupPayload{
			Model: "models/" + cfg.Model,
			GenerationConfig: &generationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
			InputAudioTranscription:  &struct{}{},
			OutputAudioTranscription: &struct{}{},
		},
	}
	if cfg.Voice != "" {
		msg.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.SystemInstruction != "" {
		msg.Setup.SystemInstruction = &content{
			Parts: []part{{Text: cfg.SystemInstruction}},
		}
	}
	if len(cfg.Tools) > 0 {
		msg.Setup.Tools = []toolDeclarations{{FunctionDeclarations: cfg.Tools}}
	}

	if err := s.writeJSON(msg); err != nil {
		return fmt.Errorf("send setup: %w", err)
	}

	s.ws.SetReadDeadline(time.Now().Add(setupTimeout))
	_, raw, err := s.ws.ReadMessage()
	if err != nil {
		return fmt.Errorf("read setup response: %w", err)
	}

	var resp ServerMessage
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode setup response: %w", err)
	}
	if resp.SetupComplete == nil {
		return fmt.Errorf("expected setupComplete, got %s", raw)
	}
	return nil
}

// SendRealtimeAudio streams one base64-encoded audio chunk to the model.
func (s *Session) SendRealtimeAudio(dataB64, mimeType string) error {
	return s.writeJSON(realtimeInputMessage{
		RealtimeInput: realtimeInput{
			Audio: &mediaBlob{Data: dataB64, MIMEType: mimeType},
		},
	})
}

// SendToolResponses acknowledges tool calls back to the model.
func (s *Session) SendToolResponses(responses ...FunctionResponse) error {
	if len(responses) == 0 {
		return nil
	}
	return s.writeJSON(toolResponseMessage{
		ToolResponse: toolResponse{FunctionResponses: responses},
	})
}

func (s *Session) writeJSON(v any) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	select {
	case <-s.done:
		return fmt.Errorf("session closed")
	default:
	}

	s.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.ws.WriteJSON(v)
}

// Messages returns the channel of decoded server messages. Messages are
// delivered in arrival order; the channel is closed when the connection
// ends.
func (s *Session) Messages() <-chan ServerMessage {
	return s.messages
}

// Err reports why the read loop ended. It returns nil after a local
// Close and the underlying read error after a remote or network close.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.readErr
}

// Close shuts down the connection. Safe to call multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.wsMu.Lock()
		s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		s.wsMu.Unlock()

		s.ws.Close()
		s.logger.Info("live session closed")
	})
	return nil
}

func (s *Session) readLoop() {
	defer close(s.messages)

	for {
		s.ws.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := s.ws.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Local close, not an error.
			default:
				s.errMu.Lock()
				s.readErr = err
				s.errMu.Unlock()
				s.logger.Warn("live read loop ended", "err", err)
			}
			return
		}

		var msg ServerMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Debug("skipping undecodable frame", "err", err)
			continue
		}

		select {
		case s.messages <- msg:
		case <-s.done:
			return
		}
	}
}

func (s *Session) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.wsMu.Lock()
			err := s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			s.wsMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
