package app

import (
	"fmt"

	"taskline/internal/config"
	"taskline/internal/domain"
	"taskline/internal/store"
)

// Bootstrap builds a seeded store from config: the product owner first,
// then the remaining participants, then the starter tasks routed through
// the lifecycle so their timestamps are coherent.
func Bootstrap(cfg *config.Config) (*store.Store, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	st := store.New()
	if _, err := st.SeedParticipant(cfg.Seed.Owner, domain.RoleProductOwner); err != nil {
		return nil, fmt.Errorf("seed owner: %w", err)
	}
	for _, p := range cfg.Seed.Participants {
		if _, err := st.AddParticipant(p.Name, p.Role); err != nil {
			return nil, fmt.Errorf("seed participant %s: %w", p.Name, err)
		}
	}
	for _, t := range cfg.Seed.Tasks {
		if _, err := st.CreateTask(t.Title, t.Status, t.EstimateMin); err != nil {
			return nil, fmt.Errorf("seed task %q: %w", t.Title, err)
		}
	}
	return st, nil
}
