package store

import "taskline/internal/domain"

// transition moves a task to the target status and applies the derived
// timestamp bookkeeping. All six directed transitions between distinct
// states are legal; side effects are keyed on the target alone.
//
// StartedAt is set once and then sticky: a task sent back from DONE and
// restarted keeps its original start. Re-applying DONE recomputes ActualSec
// against that original start and a fresh CompletedAt, so the recorded
// duration grows; that is documented behavior, not a bug.
func (s *Store) transition(t *domain.Task, target domain.Status) {
	now := s.clock().Unix()
	prev := t.Status
	switch target {
	case domain.StatusInProgress:
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
		if prev == domain.StatusDone {
			t.CompletedAt = nil
			t.ActualSec = nil
		}
	case domain.StatusDone:
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
		completed := now
		elapsed := completed - *t.StartedAt
		if elapsed < 0 {
			elapsed = 0
		}
		t.CompletedAt = &completed
		t.ActualSec = &elapsed
	case domain.StatusTodo:
		t.CompletedAt = nil
		t.ActualSec = nil
	}
	t.Status = target
}
