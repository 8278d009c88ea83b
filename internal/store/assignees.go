package store

import "taskline/internal/domain"

// checkAssignable validates an add_assignee name against the registry.
func (s *Store) checkAssignable(name string) error {
	if name == "" {
		return ValidationError{Field: "add_assignee", Reason: "must not be empty"}
	}
	if _, ok := s.findParticipant(name); !ok {
		return UnknownParticipantError{Name: name}
	}
	return nil
}

// addAssignee appends the name to the task's ordered assignee set. Adding a
// name already present is a no-op.
func addAssignee(t *domain.Task, name string) {
	if t.HasAssignee(name) {
		return
	}
	t.Assignees = append(t.Assignees, name)
}

// removeAssignee drops the name from the set. Absent names are a no-op and
// no registry check is made, so dangling names left behind by a deleted
// participant can still be removed.
func removeAssignee(t *domain.Task, name string) {
	for i, a := range t.Assignees {
		if a == name {
			t.Assignees = append(t.Assignees[:i], t.Assignees[i+1:]...)
			return
		}
	}
}
