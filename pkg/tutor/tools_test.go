package tutor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/linguakit/lingua-live/pkg/genmedia"
	"github.com/linguakit/lingua-live/pkg/live"
	"github.com/linguakit/lingua-live/pkg/transcript"
)

func newTestRouter() (*Router, *transcript.PhaseState, *transcript.Log, *genmedia.MockImageGenerator, *genmedia.MockVideoGenerator) {
	phase := transcript.NewPhaseState(transcript.Phase{Name: "greeting", LinguisticAge: "toddler"})
	log := transcript.NewLog()
	images := &genmedia.MockImageGenerator{}
	videos := &genmedia.MockVideoGenerator{}
	return NewRouter(phase, log, images, videos, nil), phase, log, images, videos
}

func call(name string, args map[string]any) live.FunctionCall {
	return live.FunctionCall{ID: "call-1", Name: name, Args: args}
}

func TestRouter_UpdatePhase(t *testing.T) {
	r, phase, _, _, _ := newTestRouter()

	resp := r.Dispatch(context.Background(), call(ToolUpdatePhase, map[string]any{
		"phase":          "conversation",
		"linguistic_age": "child",
	}))

	if resp.Response["output"] != "Phase updated" {
		t.Errorf("Unexpected ack: %v", resp.Response["output"])
	}
	if got := phase.Get(); got.Name != "conversation" || got.LinguisticAge != "child" {
		t.Errorf("Phase not updated: %+v", got)
	}
	if resp.ID != "call-1" || resp.Name != ToolUpdatePhase {
		t.Errorf("Ack not keyed to invocation: %+v", resp)
	}
}

func TestRouter_ExplainPronunciation(t *testing.T) {
	r, _, log, _, _ := newTestRouter()

	resp := r.Dispatch(context.Background(), call(ToolExplainPronunciation, map[string]any{
		"word":          "obrigado",
		"approximation": "oh-bree-GAH-doo",
		"explanation":   "stress the third syllable",
	}))

	if resp.Response["output"] != "Pronunciation explained" {
		t.Errorf("Unexpected ack: %v", resp.Response["output"])
	}
	entries := log.Entries()
	if len(entries) != 1 || entries[0].Kind != transcript.KindPronunciation {
		t.Fatalf("Expected 1 pronunciation entry, got %+v", entries)
	}
	if entries[0].Word != "obrigado" {
		t.Errorf("Unexpected word: %s", entries[0].Word)
	}
}

func TestRouter_ShowImageSuccess(t *testing.T) {
	r, _, log, images, _ := newTestRouter()
	images.Image = &genmedia.Image{MIMEType: "image/png", Data: []byte("img")}

	// The in-progress flag must be raised while generation runs.
	var flagDuring bool
	images.Delay = func() { flagDuring = r.GeneratingImage() }

	resp := r.Dispatch(context.Background(), call(ToolShowImage, map[string]any{
		"prompt": "a red apple",
	}))

	if resp.Response["output"] != "Displayed image for: a red apple" {
		t.Errorf("Unexpected ack: %v", resp.Response["output"])
	}
	if !flagDuring {
		t.Error("generating-image flag should be true during generation")
	}
	if r.GeneratingImage() {
		t.Error("generating-image flag should be false after generation")
	}

	entries := log.Entries()
	if len(entries) != 1 || entries[0].Kind != transcript.KindImage {
		t.Fatalf("Expected 1 image entry, got %+v", entries)
	}
	if entries[0].Prompt != "a red apple" || entries[0].MIMEType != "image/png" {
		t.Errorf("Unexpected image entry: %+v", entries[0])
	}
}

func TestRouter_ShowImageFailure(t *testing.T) {
	r, _, log, images, _ := newTestRouter()
	images.Err = errors.New("quota exceeded")

	resp := r.Dispatch(context.Background(), call(ToolShowImage, map[string]any{
		"prompt": "a red apple",
	}))

	if resp.Response["output"] != "Failed to show image for: a red apple" {
		t.Errorf("Unexpected ack: %v", resp.Response["output"])
	}
	if r.GeneratingImage() {
		t.Error("generating-image flag must reset on failure")
	}
	if log.Len() != 0 {
		t.Error("Failed generation should not append a transcript entry")
	}
}

func TestRouter_ShowVideoSuccess(t *testing.T) {
	r, _, log, _, videos := newTestRouter()
	videos.Video = &genmedia.Video{Path: "/tmp/a.mp4"}

	resp := r.Dispatch(context.Background(), call(ToolShowVideo, map[string]any{
		"prompt": "mouth saying ão",
	}))

	if resp.Response["output"] != "Displayed video for: mouth saying ão" {
		t.Errorf("Unexpected ack: %v", resp.Response["output"])
	}
	if r.GeneratingVideo() {
		t.Error("generating-video flag must reset")
	}
	entries := log.Entries()
	if len(entries) != 1 || entries[0].Kind != transcript.KindVideo || entries[0].VideoPath != "/tmp/a.mp4" {
		t.Fatalf("Expected 1 video entry, got %+v", entries)
	}
}

func TestRouter_ShowVideoFailure(t *testing.T) {
	r, _, _, _, videos := newTestRouter()
	videos.Err = errors.New("generation failed")

	escalated := false
	r.OnCredentialFailure = func() { escalated = true }

	resp := r.Dispatch(context.Background(), call(ToolShowVideo, map[string]any{
		"prompt": "mouth shape",
	}))

	if resp.Response["output"] != "Failed to show video for: mouth shape" {
		t.Errorf("Unexpected ack: %v", resp.Response["output"])
	}
	if escalated {
		t.Error("Ordinary failures must not escalate")
	}
	if r.GeneratingVideo() {
		t.Error("generating-video flag must reset on failure")
	}
}

func TestRouter_ShowVideoCredentialEscalation(t *testing.T) {
	r, _, _, _, videos := newTestRouter()
	videos.Err = genai.APIError{Code: 404, Message: "The requested entity was not found."}

	escalated := false
	r.OnCredentialFailure = func() { escalated = true }

	resp := r.Dispatch(context.Background(), call(ToolShowVideo, map[string]any{
		"prompt": "mouth shape",
	}))

	if resp.Response["output"] != "Failed to show video for: mouth shape" {
		t.Errorf("Unexpected ack: %v", resp.Response["output"])
	}
	if !escalated {
		t.Error("Credential failure must escalate to session stop")
	}
}

func TestRouter_GeneratorsUnavailable(t *testing.T) {
	phase := transcript.NewPhaseState(transcript.Phase{})
	r := NewRouter(phase, transcript.NewLog(), nil, nil, nil)

	resp := r.Dispatch(context.Background(), call(ToolShowImage, map[string]any{"prompt": "x"}))
	if resp.Response["output"] != "Failed to show image for: x" {
		t.Errorf("Unexpected ack without image generator: %v", resp.Response["output"])
	}

	resp = r.Dispatch(context.Background(), call(ToolShowVideo, map[string]any{"prompt": "y"}))
	if resp.Response["output"] != "Failed to show video for: y" {
		t.Errorf("Unexpected ack without video generator: %v", resp.Response["output"])
	}

	if r.GeneratingImage() || r.GeneratingVideo() {
		t.Error("Generation flags must reset after unavailable-generator calls")
	}
}

func TestRouter_UnknownTool(t *testing.T) {
	r, _, _, _, _ := newTestRouter()

	resp := r.Dispatch(context.Background(), call("dance", nil))
	if resp.Response["output"] != "Unknown tool: dance" {
		t.Errorf("Unexpected ack: %v", resp.Response["output"])
	}
}

func TestRouter_DispatchIndependence(t *testing.T) {
	r, phase, _, images, _ := newTestRouter()
	images.Err = errors.New("boom")

	// A slow failing image call must not block or break a phase update
	// dispatched from the same message.
	gate := make(chan struct{})
	images.Delay = func() { <-gate }

	var wg sync.WaitGroup
	wg.Add(2)

	var imageAck string
	go func() {
		defer wg.Done()
		resp := r.Dispatch(context.Background(), call(ToolShowImage, map[string]any{"prompt": "x"}))
		imageAck = resp.Response["output"].(string)
	}()
	go func() {
		defer wg.Done()
		r.Dispatch(context.Background(), live.FunctionCall{ID: "call-2", Name: ToolUpdatePhase, Args: map[string]any{
			"phase": "review", "linguistic_age": "adult",
		}})
	}()

	// Phase update completes while the image call is still in flight.
	deadline := time.Now().Add(2 * time.Second)
	for phase.Get().Name != "review" {
		if time.Now().After(deadline) {
			t.Fatal("Phase update blocked by concurrent image call")
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(gate)
	wg.Wait()

	if imageAck != "Failed to show image for: x" {
		t.Errorf("Unexpected image ack: %s", imageAck)
	}
	if r.GeneratingImage() {
		t.Error("generating-image flag must reset after the failed call")
	}
}
