package live

import (
	"encoding/json"
	"testing"
)

func TestServerMessage_DecodeAudio(t *testing.T) {
	raw := `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AAAA"}}]}}}`

	var msg ServerMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if msg.ServerContent == nil {
		t.Fatal("Expected serverContent to be set")
	}
	audio := msg.ServerContent.AudioParts()
	if len(audio) != 1 {
		t.Fatalf("Expected 1 audio part, got %d", len(audio))
	}
	if audio[0].MIMEType != "audio/pcm;rate=24000" {
		t.Errorf("Unexpected MIME type: %s", audio[0].MIMEType)
	}
	if audio[0].Data != "AAAA" {
		t.Errorf("Unexpected data: %s", audio[0].Data)
	}
}

func TestServerMessage_DecodeTranscriptions(t *testing.T) {
	raw := `{"serverContent":{"inputTranscription":{"text":"Hello"},"outputTranscription":{"text":"Oi"},"turnComplete":true}}`

	var msg ServerMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	sc := msg.ServerContent
	if sc == nil {
		t.Fatal("Expected serverContent to be set")
	}
	if sc.InputTranscription == nil || sc.InputTranscription.Text != "Hello" {
		t.Errorf("Unexpected input transcription: %+v", sc.InputTranscription)
	}
	if sc.OutputTranscription == nil || sc.OutputTranscription.Text != "Oi" {
		t.Errorf("Unexpected output transcription: %+v", sc.OutputTranscription)
	}
	if !sc.TurnComplete {
		t.Error("Expected turnComplete")
	}
	if sc.Interrupted {
		t.Error("Did not expect interrupted")
	}
}

func TestServerMessage_DecodeToolCall(t *testing.T) {
	raw := `{"toolCall":{"functionCalls":[{"id":"call-1","name":"update_phase","args":{"phase":"conversation","linguistic_age":"child"}}]}}`

	var msg ServerMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if msg.ToolCall == nil {
		t.Fatal("Expected toolCall to be set")
	}
	calls := msg.ToolCall.FunctionCalls
	if len(calls) != 1 {
		t.Fatalf("Expected 1 function call, got %d", len(calls))
	}
	if calls[0].ID != "call-1" || calls[0].Name != "update_phase" {
		t.Errorf("Unexpected call: %+v", calls[0])
	}
	if calls[0].Args["phase"] != "conversation" {
		t.Errorf("Unexpected args: %+v", calls[0].Args)
	}
}

func TestServerMessage_DecodeSetupComplete(t *testing.T) {
	var msg ServerMessage
	if err := json.Unmarshal([]byte(`{"setupComplete":{}}`), &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.SetupComplete == nil {
		t.Error("Expected setupComplete to be set")
	}
	if msg.ServerContent != nil || msg.ToolCall != nil {
		t.Error("Other fields should be nil")
	}
}

func TestRealtimeInput_Encode(t *testing.T) {
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			Audio: &mediaBlob{Data: "AAAA", MIMEType: "audio/pcm;rate=16000"},
		},
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"realtimeInput":{"audio":{"data":"AAAA","mimeType":"audio/pcm;rate=16000"}}}`
	if string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}
}

func TestNewFunctionResponse(t *testing.T) {
	fr := NewFunctionResponse("call-7", "show_image", "Displayed image for: a red apple")
	raw, err := json.Marshal(toolResponseMessage{
		ToolResponse: toolResponse{FunctionResponses: []FunctionResponse{fr}},
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"toolResponse":{"functionResponses":[{"id":"call-7","name":"show_image","response":{"output":"Displayed image for: a red apple"}}]}}`
	if string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}
}

func TestSetupMessage_EncodeOmitsEmpty(t *testing.T) {
	msg := setupMessage{Setup: setupPayload{Model: "models/test"}}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"setup":{"model":"models/test"}}`
	if string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}
}
