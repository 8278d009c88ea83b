package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"taskline/internal/domain"
)

// Config models taskline.yml.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		BasePath    string   `yaml:"base_path"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Seed struct {
		Owner        string            `yaml:"owner"`
		Participants []SeedParticipant `yaml:"participants"`
		Tasks        []SeedTask        `yaml:"tasks"`
	} `yaml:"seed"`
}

type SeedParticipant struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

type SeedTask struct {
	Title       string `yaml:"title"`
	Status      string `yaml:"status"`
	EstimateMin int    `yaml:"estimate_min"`
}

// Validate ensures the config meets required structure. Exactly one
// product owner exists by convention: the seed.owner entry.
func (c *Config) Validate() error {
	if c.Seed.Owner == "" {
		return fmt.Errorf("config.seed.owner is required")
	}
	for i, p := range c.Seed.Participants {
		if p.Name == "" {
			return fmt.Errorf("seed participant %d has empty name", i)
		}
		r, err := domain.ParseRole(p.Role)
		if err != nil {
			return fmt.Errorf("seed participant %s: %w", p.Name, err)
		}
		if r == domain.RoleProductOwner {
			return fmt.Errorf("seed participant %s: product_owner is seeded via seed.owner only", p.Name)
		}
	}
	for i, t := range c.Seed.Tasks {
		if t.Title == "" {
			return fmt.Errorf("seed task %d has empty title", i)
		}
		if t.Status != "" {
			if _, err := domain.ParseStatus(t.Status); err != nil {
				return fmt.Errorf("seed task %q: %w", t.Title, err)
			}
		}
		if t.EstimateMin < 0 {
			return fmt.Errorf("seed task %q: estimate_min must not be negative", t.Title)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskline.yml")
}

// Load reads and validates config from a workspace.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in config: one product owner and the starter
// tasks the service has always shipped with.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultTemplate), &cfg); err != nil {
		panic(fmt.Sprintf("default config template: %v", err))
	}
	return &cfg
}

// GenerateDefault returns the default config YAML for writing to disk.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v1
  cors_origins: ["*"]

seed:
  owner: dana

  participants:
    - name: alice
      role: member
    - name: bob
      role: member
    - name: vera
      role: visualizer

  tasks:
    - title: "Set up repository skeleton"
      status: DONE
    - title: "Stand up minimal backend"
      status: IN_PROGRESS
    - title: "Add health check endpoint"
      status: TODO
`
