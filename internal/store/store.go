package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"taskline/internal/domain"
)

// ErrNotFound is returned when a task or participant id does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError indicates malformed or out-of-range input. Nothing is
// mutated when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// UnknownParticipantError indicates an assignment naming no registered
// participant.
type UnknownParticipantError struct {
	Name string
}

func (e UnknownParticipantError) Error() string {
	return fmt.Sprintf("no participant named %q", e.Name)
}

// Store owns the task and participant collections plus their id counters.
// A single mutex serializes logical writes; readers get copies.
type Store struct {
	mu sync.Mutex

	// Now is the clock used for lifecycle timestamps. Tests inject it.
	Now func() time.Time

	tasks        []*domain.Task
	participants []domain.Participant

	nextTaskID        int64
	nextParticipantID int64
}

func New() *Store {
	return &Store{
		Now:               time.Now,
		nextTaskID:        1,
		nextParticipantID: 1,
	}
}

func (s *Store) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
