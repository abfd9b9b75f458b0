package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Ella-Hoeppner/SSE-language-server/internal/profile"
	// Registers the tree-sitter grammar names profiles may refer to.
	_ "github.com/Ella-Hoeppner/SSE-language-server/internal/sitteradapter"
)

type Config struct {
	// Profile is an inline profile. Fields it leaves empty fall back to
	// profile.Default. Ignored when ProfilePath is set.
	Profile      *profile.Profile `json:"profile,omitempty" yaml:"profile,omitempty"`
	ProfilePath  string           `json:"profile_path"      yaml:"profile_path"`
	WatchProfile bool             `json:"watch_profile"     yaml:"watch_profile"`

	Store struct {
		Backend string `json:"backend" yaml:"backend" validate:"oneof=memory sqlite"`
	} `json:"store" yaml:"store"`

	Parser struct {
		MaxParallel int `json:"max_parallel" yaml:"max_parallel" validate:"min=1,max=256"`
	} `json:"parser" yaml:"parser"`

	Cache struct {
		Enabled bool `json:"enabled" yaml:"enabled"`
	} `json:"cache" yaml:"cache"`

	Hover struct {
		Format string `json:"format" yaml:"format" validate:"oneof=plaintext markdown path"`
	} `json:"hover" yaml:"hover"`

	Treeview struct {
		// Addr is where the tree viewer listens. Empty picks a free
		// localhost port.
		Addr string `json:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
	} `json:"treeview" yaml:"treeview"`

	Metrics struct {
		Addr string `json:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
	} `json:"metrics" yaml:"metrics"`
}

func Default() Config {
	var cfg Config
	cfg.Store.Backend = "memory"
	cfg.Parser.MaxParallel = 4
	cfg.Cache.Enabled = true
	cfg.Hover.Format = "plaintext"
	return cfg
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the inline profile, if any.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Profile != nil && c.ProfilePath == "" {
		if err := fillProfile(*c.Profile).Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

// Load overlays v, typically the initializationOptions of an initialize
// request, on top of base. Only fields present in v overwrite.
func Load(base Config, v any) (Config, error) {
	cfg := base
	if v == nil {
		return cfg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays a YAML or JSON config file on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ResolveProfile returns the profile the config selects: the file at
// ProfilePath, else the inline profile, else profile.Default.
func (c Config) ResolveProfile() (profile.Profile, error) {
	switch {
	case c.ProfilePath != "":
		return profile.LoadFile(c.ProfilePath)
	case c.Profile != nil:
		p := fillProfile(*c.Profile)
		return p, p.Validate()
	default:
		return profile.Default(), nil
	}
}

func fillProfile(p profile.Profile) profile.Profile {
	def := profile.Default()
	if p.Name == "" {
		p.Name = def.Name
	}
	if p.Grammar != "" {
		return p
	}
	if len(p.Separators) == 0 {
		p.Separators = def.Separators
	}
	if p.Escape == "" {
		p.Escape = def.Escape
	}
	if len(p.Brackets) == 0 {
		p.Brackets = def.Brackets
	}
	return p
}
