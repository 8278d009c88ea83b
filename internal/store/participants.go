package store

import (
	"strings"

	"taskline/internal/domain"
)

// ParticipantPatch carries optional participant field updates. Nil slots are
// left untouched.
type ParticipantPatch struct {
	Name *string
	Role *string
}

// AddParticipant registers a new member or visualizer. The product owner is
// seeded at bootstrap and can never be created through this path.
func (s *Store) AddParticipant(name, role string) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Participant{}, ValidationError{Field: "name", Reason: "must not be empty"}
	}
	r, err := domain.ParseRole(role)
	if err != nil || r == domain.RoleProductOwner {
		return domain.Participant{}, ValidationError{Field: "role", Reason: "must be member or visualizer"}
	}
	return s.appendParticipant(name, r), nil
}

// SeedParticipant registers a participant with any role, including
// product_owner. Bootstrap only.
func (s *Store) SeedParticipant(name string, role domain.Role) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Participant{}, ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return s.appendParticipant(name, role), nil
}

func (s *Store) appendParticipant(name string, role domain.Role) domain.Participant {
	p := domain.Participant{ID: s.nextParticipantID, Name: name, Role: role}
	s.nextParticipantID++
	s.participants = append(s.participants, p)
	return p
}

// UpdateParticipant renames or re-roles a participant. The product owner is
// immutable, and the product_owner role cannot be granted.
func (s *Store) UpdateParticipant(id int64, patch ParticipantPatch) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.participants {
		if s.participants[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Participant{}, ErrNotFound
	}
	if s.participants[idx].Role == domain.RoleProductOwner {
		return domain.Participant{}, ValidationError{Field: "role", Reason: "product_owner cannot be modified"}
	}
	name := s.participants[idx].Name
	role := s.participants[idx].Role
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Participant{}, ValidationError{Field: "name", Reason: "must not be empty"}
		}
	}
	if patch.Role != nil {
		r, err := domain.ParseRole(*patch.Role)
		if err != nil {
			return domain.Participant{}, ValidationError{Field: "role", Reason: err.Error()}
		}
		if r == domain.RoleProductOwner {
			return domain.Participant{}, ValidationError{Field: "role", Reason: "product_owner cannot be granted"}
		}
		role = r
	}
	s.participants[idx].Name = name
	s.participants[idx].Role = role
	return s.participants[idx], nil
}

// RemoveParticipant deletes a participant unconditionally. Task assignee
// sets are not cleaned up; a dangling name may remain.
func (s *Store) RemoveParticipant(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.participants {
		if s.participants[i].ID == id {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// FindParticipant resolves a name to the first matching participant in
// insertion order. Names are not enforced unique; first match wins.
func (s *Store) FindParticipant(name string) (domain.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findParticipant(name)
}

func (s *Store) findParticipant(name string) (domain.Participant, bool) {
	for _, p := range s.participants {
		if p.Name == name {
			return p, true
		}
	}
	return domain.Participant{}, false
}

// Participants returns all participants in insertion order.
func (s *Store) Participants() []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Participant, len(s.participants))
	copy(out, s.participants)
	return out
}
