// Package config loads user-overridable build settings from a YAML file in
// the project root: a defaulted struct, unmarshaled over in place,
// tolerant of a missing file but not of an invalid one.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/graphkit-dev/callgraph/internal/location"
	"github.com/graphkit-dev/callgraph/internal/resolve"
)

// FileName is the config file name searched for in the project root.
const FileName = ".callgraphrc.yaml"

// Config holds build-time overrides: directory/extension filtering for
// discovery, and the framework receiver/method vocabulary for call tagging.
type Config struct {
	IgnoreDirs []string       `yaml:"ignoreDirs"`
	Extensions []string       `yaml:"extensions"`
	Framework  FrameworkConfig `yaml:"framework"`
}

// FrameworkConfig overrides the default framework-call tagging vocabulary.
// Both lists are merged with the package defaults, never replace them
// outright — the sets are meant to be extended, not emptied, by a caller
// supplying an override.
type FrameworkConfig struct {
	Receivers []string `yaml:"receivers"`
	Methods   []string `yaml:"methods"`
}

// Default returns an empty Config; callers merge it with package defaults
// elsewhere (internal/location.DefaultIgnoreDirs/DefaultExtensions,
// internal/resolve.DefaultFrameworkSets).
func Default() *Config {
	return &Config{}
}

// Load reads FileName from dir. A missing file is not an error — Default()
// is returned. Invalid YAML is reported rather than silently ignored,
// since a malformed override file is a configuration mistake worth
// surfacing, not a build-time condition to degrade gracefully from.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DiscoverOptions converts the config into location.DiscoverOptions, merged
// with the package defaults by internal/location itself.
func (c *Config) DiscoverOptions() location.DiscoverOptions {
	return location.DiscoverOptions{IgnoreDirs: c.IgnoreDirs, Extensions: c.Extensions}
}

// FrameworkSets converts the config into resolve.FrameworkSets, merging the
// configured receivers/methods on top of the package defaults.
func (c *Config) FrameworkSets() resolve.FrameworkSets {
	sets := resolve.DefaultFrameworkSets()
	for _, r := range c.Framework.Receivers {
		sets.Receivers[r] = true
	}
	for _, m := range c.Framework.Methods {
		sets.Methods[m] = true
	}
	return sets
}
