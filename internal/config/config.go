package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	TransitionsStrict     = "strict"
	TransitionsPermissive = "permissive"

	DefaultWorkshopID = "atelier"
)

// Config models gmao.yml.
type Config struct {
	Workshop struct {
		ID   string `yaml:"id" json:"id"`
		Name string `yaml:"name" json:"name"`
	} `yaml:"workshop" json:"workshop"`
	Storage struct {
		Backend   string `yaml:"backend" json:"backend"`
		DSN       string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
		RedisAddr string `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
		KeyPrefix string `yaml:"key_prefix,omitempty" json:"key_prefix,omitempty"`
	} `yaml:"storage" json:"storage"`
	Missions struct {
		Transitions string `yaml:"transitions" json:"transitions"`
	} `yaml:"missions" json:"missions"`
	Tasks struct {
		ValidateCompetences *bool `yaml:"validate_competences,omitempty" json:"validate_competences,omitempty"`
	} `yaml:"tasks" json:"tasks"`
	Log struct {
		Mode string `yaml:"mode" json:"mode"`
	} `yaml:"log" json:"log"`
	Server struct {
		Addr     string `yaml:"addr" json:"addr"`
		BasePath string `yaml:"base_path" json:"base_path"`
	} `yaml:"server" json:"server"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" json:"webhooks,omitempty"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Events         []string `yaml:"events,omitempty" json:"events,omitempty"`
	Secret         string   `yaml:"secret,omitempty" json:"-"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// PermissiveTransitions reports whether missions may jump between any statuses.
func (c *Config) PermissiveTransitions() bool {
	return c != nil && c.Missions.Transitions == TransitionsPermissive
}

// ValidateCompetences reports whether task competence codes are checked
// against the catalog. Defaults to true.
func (c *Config) ValidateCompetences() bool {
	if c == nil || c.Tasks.ValidateCompetences == nil {
		return true
	}
	return *c.Tasks.ValidateCompetences
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Workshop.ID) == "" {
		return fmt.Errorf("config.workshop.id is required")
	}
	switch c.Storage.Backend {
	case BackendSQLite:
	case BackendPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("config.storage.dsn is required for backend postgres")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("config.storage.redis_addr is required for backend redis")
		}
	default:
		return fmt.Errorf("config.storage.backend must be one of sqlite, postgres, redis (got %q)", c.Storage.Backend)
	}
	switch c.Missions.Transitions {
	case TransitionsStrict, TransitionsPermissive:
	default:
		return fmt.Errorf("config.missions.transitions must be strict or permissive (got %q)", c.Missions.Transitions)
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhook %d has negative timeout", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "gmao.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create it with gmao config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	if _, err := os.Stat(Path(workspace)); os.IsNotExist(err) {
		return Default(DefaultWorkshopID), nil
	}
	return Load(workspace)
}

// GenerateDefault returns default config YAML.
func GenerateDefault(workshopID string) string {
	return fmt.Sprintf(defaultTemplate, workshopID)
}

// Default returns the default Config struct for a workshop.
func Default(workshopID string) *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(GenerateDefault(workshopID)), &cfg); err != nil {
		panic(fmt.Sprintf("default config template: %v", err))
	}
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing
// sections fall back to the defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `workshop:
  id: %s
  name: Atelier de maintenance

storage:
  backend: sqlite

missions:
  # strict enforces the mission lifecycle; permissive allows any status change.
  transitions: strict

tasks:
  validate_competences: true

log:
  mode: dev

server:
  addr: 127.0.0.1:8080
  base_path: /v1
`
