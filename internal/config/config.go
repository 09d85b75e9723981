package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"decisionline/internal/domain"
)

// Config models decisionline.yml.
type Config struct {
	Journal struct {
		Owner string `yaml:"owner"`
	} `yaml:"journal"`
	Review struct {
		// DefaultDays is the review horizon applied when choose is asked to
		// schedule a review without an explicit date.
		DefaultDays int `yaml:"default_days"`
	} `yaml:"review"`
	Classifier struct {
		// ExtraKeywords extends the built-in keyword sets per decision type.
		ExtraKeywords map[string][]string `yaml:"extra_keywords"`
	} `yaml:"classifier"`
}

const defaultTemplate = `journal:
  owner: %s
review:
  default_days: 90
classifier:
  extra_keywords: {}
`

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Journal.Owner == "" {
		return fmt.Errorf("config.journal.owner is required")
	}
	if c.Review.DefaultDays < 0 {
		return fmt.Errorf("config.review.default_days must not be negative")
	}
	for typ, words := range c.Classifier.ExtraKeywords {
		if !domain.DecisionType(typ).Valid() {
			return fmt.Errorf("config.classifier.extra_keywords references unknown decision type %s", typ)
		}
		for _, w := range words {
			if w == "" {
				return fmt.Errorf("decision type %s has an empty extra keyword", typ)
			}
		}
	}
	return nil
}

// ExtraKeywords converts the configured keyword extensions to typed keys.
func (c *Config) ExtraKeywords() map[domain.DecisionType][]string {
	out := make(map[domain.DecisionType][]string, len(c.Classifier.ExtraKeywords))
	for typ, words := range c.Classifier.ExtraKeywords {
		out[domain.DecisionType(typ)] = words
	}
	return out
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "decisionline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(owner string) string {
	return fmt.Sprintf(defaultTemplate, owner)
}

// Default returns the default Config struct for an owner.
func Default(owner string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(fmt.Sprintf(defaultTemplate, owner)), &cfg)
	return &cfg
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
