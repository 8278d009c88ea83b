package store

import (
	"strings"

	"taskline/internal/domain"
)

// TaskPatch carries optional task field updates. Status tokens are raw and
// canonicalized during validation, so shells can pass them through as-is.
type TaskPatch struct {
	Title          *string
	EstimateMin    *int
	Status         *string
	AddAssignee    *string
	RemoveAssignee *string
}

// TouchesAssignees reports whether the patch carries assignee fields, which
// require the product_owner capability.
func (p TaskPatch) TouchesAssignees() bool {
	return p.AddAssignee != nil || p.RemoveAssignee != nil
}

// CreateTask validates the fields, allocates an id, and routes the initial
// status through the lifecycle so a task created directly in IN_PROGRESS or
// DONE carries coherent timestamps.
func (s *Store) CreateTask(title, status string, estimateMin int) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if status == "" {
		status = string(domain.StatusTodo)
	}
	target, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Task{}, ValidationError{Field: "status", Reason: err.Error()}
	}
	if estimateMin < 0 {
		return domain.Task{}, ValidationError{Field: "estimate_min", Reason: "must not be negative"}
	}
	t := &domain.Task{
		ID:          s.nextTaskID,
		Title:       title,
		Status:      domain.StatusTodo,
		EstimateMin: estimateMin,
		Assignees:   []string{},
	}
	s.nextTaskID++
	s.transition(t, target)
	s.tasks = append(s.tasks, t)
	return t.Clone(), nil
}

// Task returns a copy of the task with the given id.
func (s *Store) Task(id int64) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findTask(id)
	if t == nil {
		return domain.Task{}, ErrNotFound
	}
	return t.Clone(), nil
}

// Tasks returns all tasks in creation order.
func (s *Store) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// ApplyUpdate applies a validated patch to a task. Application is
// all-or-nothing: every field is checked before any field is written, so a
// rejected field leaves the task untouched.
func (s *Store) ApplyUpdate(id int64, patch TaskPatch) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findTask(id)
	if t == nil {
		return domain.Task{}, ErrNotFound
	}

	var title string
	if patch.Title != nil {
		title = strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Task{}, ValidationError{Field: "title", Reason: "must not be empty"}
		}
	}
	if patch.EstimateMin != nil && *patch.EstimateMin < 0 {
		return domain.Task{}, ValidationError{Field: "estimate_min", Reason: "must not be negative"}
	}
	var target domain.Status
	if patch.Status != nil {
		st, err := domain.ParseStatus(*patch.Status)
		if err != nil {
			return domain.Task{}, ValidationError{Field: "status", Reason: err.Error()}
		}
		target = st
	}
	var add string
	if patch.AddAssignee != nil {
		add = strings.TrimSpace(*patch.AddAssignee)
		if err := s.checkAssignable(add); err != nil {
			return domain.Task{}, err
		}
	}

	if patch.Title != nil {
		t.Title = title
	}
	if patch.EstimateMin != nil {
		t.EstimateMin = *patch.EstimateMin
	}
	if patch.Status != nil {
		s.transition(t, target)
	}
	if patch.AddAssignee != nil {
		addAssignee(t, add)
	}
	if patch.RemoveAssignee != nil {
		removeAssignee(t, strings.TrimSpace(*patch.RemoveAssignee))
	}
	return t.Clone(), nil
}

func (s *Store) findTask(id int64) *domain.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
