package pipeline

import (
	"sync"

	"github.com/fablecast/fablecast/internal/casting"
	"github.com/fablecast/fablecast/internal/story"
)

// Store is the state surface the orchestrator writes pipeline results into.
// Writes happen only from a run that is still current, so a failed or
// abandoned run never leaves half-updated state behind.
type Store interface {
	SetStoryText(text string)
	SetParsedStory(parsed *story.ParsedStory)
	SetPlan(plan casting.Plan)
	Reset()
}

// MemoryStore is the in-process Store used by the CLI.
type MemoryStore struct {
	mu     sync.RWMutex
	text   string
	parsed *story.ParsedStory
	plan   casting.Plan
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) SetStoryText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}

func (s *MemoryStore) SetParsedStory(parsed *story.ParsedStory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsed = parsed
}

func (s *MemoryStore) SetPlan(plan casting.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = ""
	s.parsed = nil
	s.plan = casting.Plan{}
}

func (s *MemoryStore) StoryText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

func (s *MemoryStore) ParsedStory() *story.ParsedStory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parsed
}

func (s *MemoryStore) Plan() casting.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan
}
