package transcript

import (
	"sync"
	"testing"
)

func TestLog_AppendOrder(t *testing.T) {
	log := NewLog()

	log.Append(NewTextEntry(AuthorUser, "Hello"))
	log.Append(NewTextEntry(AuthorModel, "Oi"))
	log.Append(NewPronunciationEntry("obrigado", "oh-bree-GAH-doo", "stress the third syllable"))

	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Kind != KindText || entries[0].Author != AuthorUser {
		t.Errorf("Entry 0: expected user text, got %s/%s", entries[0].Kind, entries[0].Author)
	}
	if entries[1].Text != "Oi" {
		t.Errorf("Entry 1: expected model text 'Oi', got %q", entries[1].Text)
	}
	if entries[2].Kind != KindPronunciation || entries[2].Word != "obrigado" {
		t.Errorf("Entry 2: expected pronunciation note for 'obrigado', got %+v", entries[2])
	}
}

func TestLog_EntriesReturnsSnapshot(t *testing.T) {
	log := NewLog()
	log.Append(NewTextEntry(AuthorUser, "one"))

	snapshot := log.Entries()
	log.Append(NewTextEntry(AuthorModel, "two"))

	if len(snapshot) != 1 {
		t.Errorf("Snapshot should not grow with the log, got %d entries", len(snapshot))
	}
	if log.Len() != 2 {
		t.Errorf("Expected log length 2, got %d", log.Len())
	}
}

func TestLog_ConcurrentAppend(t *testing.T) {
	log := NewLog()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append(NewTextEntry(AuthorModel, "x"))
		}()
	}
	wg.Wait()

	if log.Len() != 50 {
		t.Errorf("Expected 50 entries, got %d", log.Len())
	}
}

func TestEntry_UniqueIDs(t *testing.T) {
	a := NewTextEntry(AuthorUser, "a")
	b := NewTextEntry(AuthorUser, "a")
	if a.ID == b.ID {
		t.Error("Entries should have unique IDs")
	}
	if a.ID == "" {
		t.Error("Entry ID should not be empty")
	}
}

func TestPhaseState_SetGet(t *testing.T) {
	ps := NewPhaseState(Phase{Name: "warmup", LinguisticAge: "toddler"})

	got := ps.Get()
	if got.Name != "warmup" {
		t.Errorf("Expected initial phase 'warmup', got %q", got.Name)
	}

	ps.Set(Phase{Name: "conversation", LinguisticAge: "child"})
	got = ps.Get()
	if got.Name != "conversation" || got.LinguisticAge != "child" {
		t.Errorf("Expected updated phase, got %+v", got)
	}
}
