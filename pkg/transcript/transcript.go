// Package transcript holds the append-only conversation record and the
// current lesson phase.
package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EntryKind identifies the variant of a transcript entry.
type EntryKind string

const (
	KindText          EntryKind = "text"
	KindImage         EntryKind = "image"
	KindPronunciation EntryKind = "pronunciation"
	KindVideo         EntryKind = "video"
)

// Author identifies who produced a text entry.
type Author string

const (
	AuthorUser  Author = "user"
	AuthorModel Author = "model"
)

// Entry is one immutable transcript record. Exactly one of the variant
// fields is populated, indicated by Kind.
type Entry struct {
	ID        string    `json:"id"`
	Kind      EntryKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`

	// Text entries.
	Author Author `json:"author,omitempty"`
	Text   string `json:"text,omitempty"`

	// Image entries.
	Prompt   string `json:"prompt,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data,omitempty"`

	// Pronunciation entries.
	Word          string `json:"word,omitempty"`
	Approximation string `json:"approximation,omitempty"`
	Explanation   string `json:"explanation,omitempty"`

	// Video entries.
	VideoPath string `json:"video_path,omitempty"`
}

// NewTextEntry creates a text entry from the given author.
func NewTextEntry(author Author, text string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Kind:      KindText,
		CreatedAt: time.Now(),
		Author:    author,
		Text:      text,
	}
}

// NewImageEntry creates a model-authored image entry.
func NewImageEntry(prompt, mimeType string, data []byte) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Kind:      KindImage,
		CreatedAt: time.Now(),
		Author:    AuthorModel,
		Prompt:    prompt,
		MIMEType:  mimeType,
		Data:      data,
	}
}

// NewPronunciationEntry creates a model-authored pronunciation note.
func NewPronunciationEntry(word, approximation, explanation string) Entry {
	return Entry{
		ID:            uuid.NewString(),
		Kind:          KindPronunciation,
		CreatedAt:     time.Now(),
		Author:        AuthorModel,
		Word:          word,
		Approximation: approximation,
		Explanation:   explanation,
	}
}

// NewVideoEntry creates a model-authored video entry pointing at a local file.
func NewVideoEntry(prompt, path string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Kind:      KindVideo,
		CreatedAt: time.Now(),
		Author:    AuthorModel,
		Prompt:    prompt,
		VideoPath: path,
	}
}

// Log is an ordered, append-only sequence of entries.
// Insertion order is chronological and meaningful.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewLog creates an empty transcript log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an entry to the end of the log.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Entries returns a snapshot of the log in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Phase describes the current lesson phase and learner level.
type Phase struct {
	Name          string `json:"name"`
	LinguisticAge string `json:"linguistic_age"`
}

// PhaseState holds the current phase, mutated only by the phase tool.
type PhaseState struct {
	mu    sync.RWMutex
	phase Phase
}

// NewPhaseState creates a PhaseState with the given initial phase.
func NewPhaseState(initial Phase) *PhaseState {
	return &PhaseState{phase: initial}
}

// Set replaces the current phase.
func (p *PhaseState) Set(phase Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
}

// Get returns the current phase.
func (p *PhaseState) Get() Phase {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.phase
}
