package run

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/igolaizola/formfill/internal/browser"
)

// DefaultProbability is the chance of honoring a matched preference over
// pure randomness when no override is configured.
const DefaultProbability = 0.6

// DefaultPreferences returns the built-in set of preferred answer strings.
func DefaultPreferences() []string {
	return []string{
		"Female",
		"18-24",
		"Other country",
		"Several times a month",
		"Agree",
		"Likely",
		"Mainly foreign brands",
		"Neutral",
		"4",
		"3",
	}
}

type Config struct {
	URL            string
	Count          int
	CSVPath        string
	RunLogPath     string
	Preferences    []string
	Probability    float64
	Headless       bool
	TimeoutSeconds int
	SettleSeconds  int
	Verbose        bool
	Selectors      browser.Selectors
}

// fileConfig is the YAML shape of the optional config file. Only the fields
// it provides are applied.
type fileConfig struct {
	URL         string            `yaml:"url"`
	CSV         string            `yaml:"csv"`
	Preferences []string          `yaml:"preferences"`
	Probability *float64          `yaml:"probability"`
	Selectors   browser.Selectors `yaml:"selectors"`
}

func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if fc.URL != "" {
		c.URL = fc.URL
	}
	if fc.CSV != "" {
		c.CSVPath = fc.CSV
	}
	if len(fc.Preferences) > 0 {
		c.Preferences = fc.Preferences
	}
	if fc.Probability != nil {
		c.Probability = *fc.Probability
	}
	if fc.Selectors != (browser.Selectors{}) {
		c.Selectors = fc.Selectors
	}
	return nil
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url must not be empty")
	}
	if c.Count <= 0 {
		return fmt.Errorf("count must be > 0")
	}
	if c.CSVPath == "" {
		return fmt.Errorf("csv path must not be empty")
	}
	if len(c.Preferences) == 0 {
		return fmt.Errorf("preference set must not be empty")
	}
	if c.Probability < 0 || c.Probability > 1 {
		return fmt.Errorf("probability must be in [0,1]")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout-seconds must be > 0")
	}
	if c.SettleSeconds < 0 {
		return fmt.Errorf("settle-seconds must be >= 0")
	}
	return nil
}
