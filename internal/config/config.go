package config

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFilename is looked up at the repository root when --config is not given.
const DefaultFilename = "hookrunner.yml"

type Config struct {
	Log    Log     `koanf:"log"`
	Run    Run     `koanf:"run"`
	Groups []Group `koanf:"groups"`
	File   string  `koanf:"-"`
}

func New() *Config {
	return &Config{}
}

func NewFromConfigFile(path string) (*Config, error) {
	c := New()
	if err := c.LoadFromFile(path); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.Log.ConfigureWithLevelString("", false)
	return c, nil
}

func (c *Config) LoadFromFile(path string) error {
	c.File = path

	k := koanf.New(".")

	defaults := map[string]any{
		"log.level":              "info",
		"log.format":             "text",
		"log.disable_timestamps": false,
		"run.shell":              "/bin/bash",
		"run.concurrency":        0,
		"run.fail_fast":          false,
		"run.step_timeout":       "",
		"run.lock":               false,
	}

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Warn("config file not found, no steps configured", "path", path)
		} else {
			return fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Unmarshal("", c); err != nil {
		return fmt.Errorf("unmarshalling config: %w", err)
	}

	return nil
}

func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if err := c.Run.Validate(); err != nil {
		return fmt.Errorf("run config: %w", err)
	}

	seen := make(map[string]bool, len(c.Groups))
	for i := range c.Groups {
		g := &c.Groups[i]
		if err := g.Validate(); err != nil {
			return fmt.Errorf("groups[%d] config: %w", i, err)
		}
		if seen[g.Name] {
			return fmt.Errorf("groups[%d] config: duplicate group name %q", i, g.Name)
		}
		seen[g.Name] = true
	}
	return nil
}

// GroupsFor returns the groups that define at least one step for hook,
// in configuration order.
func (c *Config) GroupsFor(hook string) []Group {
	var groups []Group
	for _, g := range c.Groups {
		if len(g.Hooks[hook]) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}
