// Package config loads the optional per-repository release configuration
// from .prerelease.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/publish-prerelease/internal/manifest"
	"github.com/shinji-kodama/publish-prerelease/internal/prompt"
	"github.com/shinji-kodama/publish-prerelease/internal/version"
)

// FileName is the configuration file looked up in the repository root.
const FileName = ".prerelease.yml"

// File models .prerelease.yml. Unset keys keep their defaults.
type File struct {
	// Package overrides the package name shown in the prompt.
	Package string `yaml:"package,omitempty"`

	// Manifest is the manifest path relative to the repository root.
	Manifest string `yaml:"manifest,omitempty"`

	// StrictArgs requires both <branch> and <tag>.
	StrictArgs *bool `yaml:"strict_args,omitempty"`

	// DeclineNotice prints a notice when the prompt is declined.
	DeclineNotice *bool `yaml:"decline_notice,omitempty"`

	// Bump is the increment that starts a new pre-release track.
	Bump string `yaml:"bump,omitempty"`

	// Affirmations replaces the accepted answers.
	Affirmations []string `yaml:"affirmations,omitempty"`

	// Git and NPM are the executables to run.
	Git string `yaml:"git,omitempty"`
	NPM string `yaml:"npm,omitempty"`
}

// Config is the resolved configuration.
type Config struct {
	Package       string
	Manifest      string
	StrictArgs    bool
	DeclineNotice bool
	Bump          version.Kind
	Affirmations  []string
	Git           string
	NPM           string

	// Source is the file the configuration was read from, or empty when
	// defaults were used.
	Source string
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Manifest:      manifest.DefaultFile,
		StrictArgs:    true,
		DeclineNotice: true,
		Bump:          version.Premajor,
		Affirmations:  append([]string(nil), prompt.DefaultAffirmations...),
		Git:           "git",
		NPM:           "npm",
	}
}

// Path returns the default configuration path for a repository root.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, FileName)
}

// Load reads the configuration at path. A missing file yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed File
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.apply(parsed); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

func (c *Config) apply(f File) error {
	if f.Package != "" {
		c.Package = strings.TrimSpace(f.Package)
	}
	if f.Manifest != "" {
		c.Manifest = f.Manifest
	}
	if f.StrictArgs != nil {
		c.StrictArgs = *f.StrictArgs
	}
	if f.DeclineNotice != nil {
		c.DeclineNotice = *f.DeclineNotice
	}
	if f.Bump != "" {
		kind, err := ParseBump(f.Bump)
		if err != nil {
			return err
		}
		c.Bump = kind
	}
	if f.Affirmations != nil {
		var affirmations []string
		for _, a := range f.Affirmations {
			if a = strings.TrimSpace(a); a != "" {
				affirmations = append(affirmations, a)
			}
		}
		if len(affirmations) == 0 {
			return fmt.Errorf("affirmations must list at least one answer")
		}
		c.Affirmations = affirmations
	}
	if f.Git != "" {
		c.Git = f.Git
	}
	if f.NPM != "" {
		c.NPM = f.NPM
	}
	return nil
}

// ParseBump parses a track bump kind. Prerelease is rejected because it
// cannot start a new track.
func ParseBump(s string) (version.Kind, error) {
	kind, err := version.ParseKind(s)
	if err != nil {
		return "", err
	}
	if !kind.IsTrackBump() {
		return "", fmt.Errorf("bump %q cannot start a pre-release track (valid: premajor, preminor, prepatch)", s)
	}
	return kind, nil
}
