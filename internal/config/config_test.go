package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"taskline/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Seed.Owner != "dana" {
		t.Fatalf("owner = %q", cfg.Seed.Owner)
	}
	if len(cfg.Seed.Tasks) != 3 {
		t.Fatalf("starter tasks = %d", len(cfg.Seed.Tasks))
	}
	if cfg.Server.BasePath != "/v1" {
		t.Fatalf("base path = %q", cfg.Server.BasePath)
	}
}

func TestFromYAMLValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing owner", "seed: {}\n"},
		{"owner seeded twice", `
seed:
  owner: dana
  participants:
    - name: eve
      role: product_owner
`},
		{"bad role", `
seed:
  owner: dana
  participants:
    - name: eve
      role: wizard
`},
		{"bad seed status", `
seed:
  owner: dana
  tasks:
    - title: x
      status: doing
`},
		{"negative estimate", `
seed:
  owner: dana
  tasks:
    - title: x
      estimate_min: -1
`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := config.FromYAML([]byte(c.yaml)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadOptionalFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Seed.Owner != "dana" {
		t.Fatalf("expected default config, got owner %q", cfg.Seed.Owner)
	}

	custom := `
server:
  addr: 127.0.0.1:9999
seed:
  owner: pat
`
	if err := os.WriteFile(filepath.Join(dir, "taskline.yml"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = config.LoadOptional(dir)
	if err != nil {
		t.Fatalf("load custom: %v", err)
	}
	if cfg.Seed.Owner != "pat" || cfg.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
