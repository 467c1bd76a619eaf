package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

// fakeLiveServer runs a websocket endpoint that completes the setup
// handshake and then hands the connection to fn.
func fakeLiveServer(t *testing.T, fn func(ws *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer ws.Close()

		// Expect the setup frame first.
		var setup map[string]json.RawMessage
		if err := ws.ReadJSON(&setup); err != nil {
			t.Errorf("Read setup failed: %v", err)
			return
		}
		if _, ok := setup["setup"]; !ok {
			t.Errorf("First frame should be setup, got %v", setup)
			return
		}
		if err := ws.WriteJSON(map[string]any{"setupComplete": map[string]any{}}); err != nil {
			t.Errorf("Write setupComplete failed: %v", err)
			return
		}

		if fn != nil {
			fn(ws)
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(srv *httptest.Server) Config {
	return Config{
		APIKey:   "test-key",
		Model:    "test-live-model",
		Voice:    "Aoede",
		Endpoint: wsURL(srv),
	}
}

func TestConnect_Handshake(t *testing.T) {
	srv := fakeLiveServer(t, nil)
	defer srv.Close()

	s, err := Connect(context.Background(), testConfig(srv))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()
}

func TestConnect_InvalidConfig(t *testing.T) {
	if _, err := Connect(context.Background(), Config{Model: "m"}); err == nil {
		t.Error("Expected error without API key")
	}
	if _, err := Connect(context.Background(), Config{APIKey: "k"}); err == nil {
		t.Error("Expected error without model")
	}
}

func TestSession_MessagesInOrder(t *testing.T) {
	srv := fakeLiveServer(t, func(ws *websocket.Conn) {
		frames := []string{
			`{"serverContent":{"inputTranscription":{"text":"one"}}}`,
			`{"serverContent":{"outputTranscription":{"text":"two"}}}`,
			`{"serverContent":{"turnComplete":true}}`,
		}
		for _, f := range frames {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection open until the client closes.
		ws.ReadMessage()
	})
	defer srv.Close()

	s, err := Connect(context.Background(), testConfig(srv))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()

	var got []ServerMessage
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case msg := <-s.Messages():
			got = append(got, msg)
		case <-timeout:
			t.Fatalf("Timed out after %d messages", len(got))
		}
	}

	if got[0].ServerContent == nil || got[0].ServerContent.InputTranscription.Text != "one" {
		t.Errorf("Message 0 out of order: %+v", got[0])
	}
	if got[1].ServerContent == nil || got[1].ServerContent.OutputTranscription.Text != "two" {
		t.Errorf("Message 1 out of order: %+v", got[1])
	}
	if got[2].ServerContent == nil || !got[2].ServerContent.TurnComplete {
		t.Errorf("Message 2 out of order: %+v", got[2])
	}
}

func TestSession_SendRealtimeAudio(t *testing.T) {
	received := make(chan string, 1)
	srv := fakeLiveServer(t, func(ws *websocket.Conn) {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		received <- string(raw)
	})
	defer srv.Close()

	s, err := Connect(context.Background(), testConfig(srv))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()

	if err := s.SendRealtimeAudio("UFFN", "audio/pcm;rate=16000"); err != nil {
		t.Fatalf("SendRealtimeAudio failed: %v", err)
	}

	select {
	case raw := <-received:
		var msg realtimeInputMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			t.Fatalf("Server received undecodable frame: %v", err)
		}
		if msg.RealtimeInput.Audio == nil || msg.RealtimeInput.Audio.Data != "UFFN" {
			t.Errorf("Unexpected audio frame: %s", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Server never received the audio frame")
	}
}

func TestSession_CloseIsClean(t *testing.T) {
	srv := fakeLiveServer(t, func(ws *websocket.Conn) {
		ws.ReadMessage()
	})
	defer srv.Close()

	s, err := Connect(context.Background(), testConfig(srv))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Close again is a no-op.
	if err := s.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}

	// Channel drains and closes.
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-s.Messages():
			if !ok {
				if s.Err() != nil {
					t.Errorf("Local close should not record a read error, got %v", s.Err())
				}
				return
			}
		case <-timeout:
			t.Fatal("Messages channel not closed after Close")
		}
	}
}

func TestSession_RemoteCloseRecordsError(t *testing.T) {
	srv := fakeLiveServer(t, func(ws *websocket.Conn) {
		// Drop the connection without a close handshake.
		ws.Close()
	})
	defer srv.Close()

	s, err := Connect(context.Background(), testConfig(srv))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-s.Messages():
			if !ok {
				if s.Err() == nil {
					t.Error("Remote close should record a read error")
				}
				return
			}
		case <-timeout:
			t.Fatal("Messages channel not closed after remote close")
		}
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	srv := fakeLiveServer(t, nil)
	defer srv.Close()

	s, err := Connect(context.Background(), testConfig(srv))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	s.Close()

	if err := s.SendRealtimeAudio("AAAA", "audio/pcm;rate=16000"); err == nil {
		t.Error("Expected error sending after Close")
	}
}
