package domain

import (
	"fmt"
	"strings"
)

// Status is a task workflow state. Canonical form is uppercase.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// ParseStatus canonicalizes a status token. Input is case-insensitive.
func ParseStatus(in string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(in))); s {
	case StatusTodo, StatusInProgress, StatusDone:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status %q", in)
	}
}

// Role is a participant role. Canonical form is lowercase.
type Role string

const (
	RoleProductOwner Role = "product_owner"
	RoleMember       Role = "member"
	RoleVisualizer   Role = "visualizer"
)

// ParseRole canonicalizes a role token. Input is case-insensitive.
func ParseRole(in string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(in))); r {
	case RoleProductOwner, RoleMember, RoleVisualizer:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", in)
	}
}

type Participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role" enum:"product_owner,member,visualizer"`
}

// Task is a tracked work item. StartedAt, CompletedAt and ActualSec are
// epoch seconds; CompletedAt and ActualSec are both present or both absent.
type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Status      Status   `json:"status" enum:"TODO,IN_PROGRESS,DONE"`
	EstimateMin int      `json:"estimate_min"`
	StartedAt   *int64   `json:"started_at,omitempty"`
	CompletedAt *int64   `json:"completed_at,omitempty"`
	ActualSec   *int64   `json:"actual_sec,omitempty"`
	Assignees   []string `json:"assignees"`
}

// HasAssignee reports whether name is in the task's assignee set.
func (t Task) HasAssignee(name string) bool {
	for _, a := range t.Assignees {
		if a == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hold a task outside the store.
func (t Task) Clone() Task {
	out := t
	out.StartedAt = cloneInt64(t.StartedAt)
	out.CompletedAt = cloneInt64(t.CompletedAt)
	out.ActualSec = cloneInt64(t.ActualSec)
	out.Assignees = append([]string(nil), t.Assignees...)
	return out
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
