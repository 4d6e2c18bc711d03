package conversation

import (
	"fmt"
	"sync"

	"github.com/phrazzld/scry-chat/internal/domain"
)

// Store is a single conversation behind a synchronization boundary.
// Turns only grow; the model field is the only mutable attribute.
type Store struct {
	mu    sync.RWMutex
	model string
	turns []domain.Turn
}

// NewStore creates an empty conversation using the given model.
func NewStore(model string) *Store {
	return &Store{model: model}
}

// Append validates the turn and appends it atomically.
// It returns the index the turn was stored at.
func (s *Store) Append(turn domain.Turn) (int, error) {
	if err := turn.Validate(); err != nil {
		return 0, fmt.Errorf("append turn: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
	return len(s.turns) - 1, nil
}

// Turns returns a copy of the turn sequence.
func (s *Store) Turns() []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyTurnsLocked()
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Model returns the currently selected model.
func (s *Store) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModel changes the selected model. Turns are untouched.
func (s *Store) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

// Snapshot returns a consistent copy of the model and turns.
func (s *Store) Snapshot() domain.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Conversation{Model: s.model, Turns: s.copyTurnsLocked()}
}

// RestoreIfEmpty replaces the state with conv only while the store holds no
// turns. It reports whether the restore happened.
func (s *Store) RestoreIfEmpty(conv domain.Conversation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.turns) > 0 {
		return false
	}
	restored := conv.Clone()
	s.turns = restored.Turns
	if restored.Model != "" {
		s.model = restored.Model
	}
	return true
}

func (s *Store) copyTurnsLocked() []domain.Turn {
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}
