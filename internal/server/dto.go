package server

import (
	"encoding/json"

	"taskline/internal/domain"
	"taskline/internal/journal"
	"taskline/internal/store"
)

// Request payloads

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Status      *string `json:"status,omitempty"`
	EstimateMin *int    `json:"estimate_min,omitempty"`
}

type UpdateTaskRequest struct {
	Title          *string `json:"title,omitempty"`
	EstimateMin    *int    `json:"estimate_min,omitempty"`
	Status         *string `json:"status,omitempty"`
	AddAssignee    *string `json:"add_assignee,omitempty"`
	RemoveAssignee *string `json:"remove_assignee,omitempty"`
}

func (r UpdateTaskRequest) patch() store.TaskPatch {
	return store.TaskPatch{
		Title:          r.Title,
		EstimateMin:    r.EstimateMin,
		Status:         r.Status,
		AddAssignee:    r.AddAssignee,
		RemoveAssignee: r.RemoveAssignee,
	}
}

type CreateParticipantRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type UpdateParticipantRequest struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty"`
}

// Response payloads

type HealthResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	TasksCount int    `json:"tasks_count"`
}

type TaskResponse struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Status      string   `json:"status" enum:"TODO,IN_PROGRESS,DONE"`
	EstimateMin int      `json:"estimate_min"`
	StartedAt   *int64   `json:"started_at,omitempty"`
	CompletedAt *int64   `json:"completed_at,omitempty"`
	ActualSec   *int64   `json:"actual_sec,omitempty"`
	Assignees   []string `json:"assignees"`
}

type ParticipantResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role" enum:"product_owner,member,visualizer"`
}

type EntryResponse struct {
	ID         string         `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	Actor      string         `json:"actor"`
	Payload    map[string]any `json:"payload"`
}

// Conversion helpers

func taskResponse(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Status:      string(t.Status),
		EstimateMin: t.EstimateMin,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		ActualSec:   t.ActualSec,
		Assignees:   nonNilSlice(t.Assignees),
	}
}

func mapTasks(in []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(in))
	for _, t := range in {
		out = append(out, taskResponse(t))
	}
	return out
}

func participantResponse(p domain.Participant) ParticipantResponse {
	return ParticipantResponse{ID: p.ID, Name: p.Name, Role: string(p.Role)}
}

func mapParticipants(in []domain.Participant) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(in))
	for _, p := range in {
		out = append(out, participantResponse(p))
	}
	return out
}

func entryResponse(e journal.Entry) EntryResponse {
	return EntryResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Actor:      e.Actor,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func mapEntries(in []journal.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(in))
	for _, e := range in {
		out = append(out, entryResponse(e))
	}
	return out
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	return tmp
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
