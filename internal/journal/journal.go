// Package journal persists an append-only audit trail of mutations. Task
// and participant state lives in memory; the journal is an operator-facing
// diary, not a source of truth.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Payload map[string]any

// Entry is one recorded mutation.
type Entry struct {
	ID         string `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Actor      string `json:"actor"`
	Payload    string `json:"payload_json"`
}

// Append records one entry. Entries are never updated or deleted.
func (w Writer) Append(ctx context.Context, entryType, entityKind, entityID, actor string, payload Payload) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal journal payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO journal(id,ts,type,entity_kind,entity_id,actor,payload_json) VALUES (?,?,?,?,?,?,?)`,
		uuid.New().String(), now().UTC().Format(time.RFC3339), entryType, entityKind, nullable(entityID), actor, string(data))
	return err
}

// Recent returns the latest entries, newest first.
func (w Writer) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := w.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,'') AS entity_id,actor,payload_json FROM journal ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.Actor, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
