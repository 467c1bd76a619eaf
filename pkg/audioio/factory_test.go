package audioio

import (
	"testing"
)

func TestNewSource_MockBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock

	source, err := NewSource(cfg, nil)
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	defer source.Close()

	if source.Name() != "mock" {
		t.Errorf("Expected mock source, got %s", source.Name())
	}
}

func TestNewSink_MockBackend(t *testing.T) {
	cfg := PlaybackConfig()
	cfg.Backend = BackendMock

	sink, err := NewSink(cfg, nil)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	defer sink.Close()

	if sink.Name() != "mock" {
		t.Errorf("Expected mock sink, got %s", sink.Name())
	}
}

func TestNewSource_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 0

	if _, err := NewSource(cfg, nil); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestAvailableBackends_AlwaysIncludesMock(t *testing.T) {
	backends := AvailableBackends()
	if len(backends) == 0 {
		t.Fatal("Expected at least one backend")
	}

	found := false
	for _, b := range backends {
		if b == BackendMock {
			found = true
		}
	}
	if !found {
		t.Errorf("Mock backend should always be listed, got %v", backends)
	}
}
