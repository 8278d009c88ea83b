// Package engine exposes the operation surface of the service: it resolves
// caller identities, consults the authorization policy, and applies
// validated changes through the store, journaling each mutation.
package engine

import (
	"context"
	"log"
	"strconv"
	"strings"

	"taskline/internal/domain"
	"taskline/internal/engine/auth"
	"taskline/internal/journal"
	"taskline/internal/store"
)

type Engine struct {
	Store   *store.Store
	Journal *journal.Writer
	Logger  *log.Logger
}

func New(st *store.Store, jw *journal.Writer) Engine {
	return Engine{Store: st, Journal: jw}
}

// resolve maps a caller identity to a participant. Identity is an opaque
// name the shell extracted from its transport; any mutation with an absent
// or unknown name fails before role checks run.
func (e Engine) resolve(caller string) (domain.Participant, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return domain.Participant{}, auth.ErrUnauthenticated
	}
	p, ok := e.Store.FindParticipant(caller)
	if !ok {
		return domain.Participant{}, auth.ErrUnauthenticated
	}
	return p, nil
}

// ListTasks is an open read; no identity needed.
func (e Engine) ListTasks(ctx context.Context) []domain.Task {
	return e.Store.Tasks()
}

// GetTask is an open read.
func (e Engine) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return e.Store.Task(id)
}

func (e Engine) CreateTask(ctx context.Context, caller, title, status string, estimateMin int) (domain.Task, error) {
	p, err := e.resolve(caller)
	if err != nil {
		return domain.Task{}, err
	}
	if err := auth.CanCreateTask(p.Role); err != nil {
		return domain.Task{}, err
	}
	t, err := e.Store.CreateTask(title, status, estimateMin)
	if err != nil {
		return domain.Task{}, err
	}
	e.record(ctx, "task.created", "task", t.ID, p.Name, journal.Payload{
		"title":  t.Title,
		"status": t.Status,
	})
	return t, nil
}

func (e Engine) UpdateTask(ctx context.Context, caller string, id int64, patch store.TaskPatch) (domain.Task, error) {
	p, err := e.resolve(caller)
	if err != nil {
		return domain.Task{}, err
	}
	before, err := e.Store.Task(id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := auth.CheckTaskPatch(p.Role, before.HasAssignee(p.Name), patch.TouchesAssignees()); err != nil {
		return domain.Task{}, err
	}
	t, err := e.Store.ApplyUpdate(id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	e.record(ctx, "task.updated", "task", t.ID, p.Name, journal.Payload{
		"from_status": before.Status,
		"to_status":   t.Status,
	})
	return t, nil
}

// ListParticipants is an open read.
func (e Engine) ListParticipants(ctx context.Context) []domain.Participant {
	return e.Store.Participants()
}

func (e Engine) CreateParticipant(ctx context.Context, caller, name, role string) (domain.Participant, error) {
	p, err := e.resolve(caller)
	if err != nil {
		return domain.Participant{}, err
	}
	if err := auth.CanManageParticipants(p.Role); err != nil {
		return domain.Participant{}, err
	}
	created, err := e.Store.AddParticipant(name, role)
	if err != nil {
		return domain.Participant{}, err
	}
	e.record(ctx, "participant.added", "participant", created.ID, p.Name, journal.Payload{
		"name": created.Name,
		"role": created.Role,
	})
	return created, nil
}

func (e Engine) UpdateParticipant(ctx context.Context, caller string, id int64, patch store.ParticipantPatch) (domain.Participant, error) {
	p, err := e.resolve(caller)
	if err != nil {
		return domain.Participant{}, err
	}
	if err := auth.CanManageParticipants(p.Role); err != nil {
		return domain.Participant{}, err
	}
	updated, err := e.Store.UpdateParticipant(id, patch)
	if err != nil {
		return domain.Participant{}, err
	}
	e.record(ctx, "participant.updated", "participant", updated.ID, p.Name, journal.Payload{
		"name": updated.Name,
		"role": updated.Role,
	})
	return updated, nil
}

// DeleteParticipant removes the record unconditionally. Tasks keep any
// assignee names pointing at the deleted participant; the dangling names
// stay removable through the assignment path.
func (e Engine) DeleteParticipant(ctx context.Context, caller string, id int64) error {
	p, err := e.resolve(caller)
	if err != nil {
		return err
	}
	if err := auth.CanManageParticipants(p.Role); err != nil {
		return err
	}
	if err := e.Store.RemoveParticipant(id); err != nil {
		return err
	}
	e.record(ctx, "participant.removed", "participant", id, p.Name, nil)
	return nil
}

// RecentEntries reads back the audit journal, newest first.
func (e Engine) RecentEntries(ctx context.Context, limit int) ([]journal.Entry, error) {
	if e.Journal == nil {
		return nil, nil
	}
	return e.Journal.Recent(ctx, limit)
}

// record appends to the journal best-effort: the mutation already
// succeeded, so a journal failure is logged rather than surfaced.
func (e Engine) record(ctx context.Context, entryType, entityKind string, entityID int64, actor string, payload journal.Payload) {
	if e.Journal == nil {
		return
	}
	if err := e.Journal.Append(ctx, entryType, entityKind, strconv.FormatInt(entityID, 10), actor, payload); err != nil {
		e.logger().Printf("journal append %s: %v", entryType, err)
	}
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}
