// Package auth holds the pure role-based authorization policy. Decisions
// depend only on the caller's resolved role and, for task mutations, whether
// the caller is a current assignee of the target task.
package auth

import (
	"errors"
	"fmt"

	"taskline/internal/domain"
)

// Capability identifiers surfaced in Forbidden errors.
const (
	CapTaskCreate         = "task.create"
	CapTaskUpdate         = "task.update"
	CapTaskAssignees      = "task.assignees"
	CapManageParticipants = "participant.manage"
)

// ErrUnauthenticated is returned when the caller identity is absent or
// resolves to no registered participant. It is checked before any role
// logic runs.
var ErrUnauthenticated = errors.New("participant identity required")

// ForbiddenError indicates the resolved role lacks a capability.
type ForbiddenError struct {
	Capability string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("capability %s required", e.Capability)
}

// CanCreateTask allows only the product owner to create tasks.
func CanCreateTask(role domain.Role) error {
	if role != domain.RoleProductOwner {
		return ForbiddenError{Capability: CapTaskCreate}
	}
	return nil
}

// CheckTaskPatch evaluates a whole task patch atomically: any privileged
// field present without authorization rejects the entire update.
//
// The product owner may change anything. A member may change title,
// estimate, and status on tasks they are assigned to, but never assignee
// fields. Visualizers may change nothing.
func CheckTaskPatch(role domain.Role, isAssignee, touchesAssignees bool) error {
	switch role {
	case domain.RoleProductOwner:
		return nil
	case domain.RoleMember:
		if !isAssignee {
			return ForbiddenError{Capability: CapTaskUpdate}
		}
		if touchesAssignees {
			return ForbiddenError{Capability: CapTaskAssignees}
		}
		return nil
	default:
		return ForbiddenError{Capability: CapTaskUpdate}
	}
}

// CanManageParticipants allows only the product owner to add, update, or
// remove participants.
func CanManageParticipants(role domain.Role) error {
	if role != domain.RoleProductOwner {
		return ForbiddenError{Capability: CapManageParticipants}
	}
	return nil
}
