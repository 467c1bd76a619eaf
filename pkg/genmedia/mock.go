package genmedia

import (
	"context"
	"sync"
)

// MockImageGenerator is a configurable image generator for testing.
type MockImageGenerator struct {
	mu      sync.Mutex
	Image   *Image
	Err     error
	Delay   func() // optional hook run before returning
	prompts []string
}

// Generate records the prompt and returns the configured result.
func (m *MockImageGenerator) Generate(ctx context.Context, prompt string) (*Image, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	delay := m.Delay
	m.mu.Unlock()

	if delay != nil {
		delay()
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Image != nil {
		return m.Image, nil
	}
	return &Image{MIMEType: "image/png", Data: []byte("png")}, nil
}

// Prompts returns the prompts received so far.
func (m *MockImageGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

var _ ImageGenerator = (*MockImageGenerator)(nil)

// MockVideoGenerator is a configurable video generator for testing.
type MockVideoGenerator struct {
	mu      sync.Mutex
	Video   *Video
	Err     error
	Delay   func()
	prompts []string
}

// Generate records the prompt and returns the configured result.
func (m *MockVideoGenerator) Generate(ctx context.Context, prompt string) (*Video, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	delay := m.Delay
	m.mu.Unlock()

	if delay != nil {
		delay()
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Video != nil {
		return m.Video, nil
	}
	return &Video{Path: "/tmp/mock.mp4"}, nil
}

// Prompts returns the prompts received so far.
func (m *MockVideoGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

var _ VideoGenerator = (*MockVideoGenerator)(nil)
