package run

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		URL:            "https://example.com/form",
		Count:          5,
		CSVPath:        "responses.csv",
		Preferences:    DefaultPreferences(),
		Probability:    DefaultProbability,
		TimeoutSeconds: 30,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, wantErr: "url"},
		{name: "zero count", mutate: func(c *Config) { c.Count = 0 }, wantErr: "count"},
		{name: "missing csv", mutate: func(c *Config) { c.CSVPath = "" }, wantErr: "csv"},
		{name: "empty preferences", mutate: func(c *Config) { c.Preferences = nil }, wantErr: "preference set"},
		{name: "probability above one", mutate: func(c *Config) { c.Probability = 1.5 }, wantErr: "probability"},
		{name: "negative probability", mutate: func(c *Config) { c.Probability = -0.1 }, wantErr: "probability"},
		{name: "zero timeout", mutate: func(c *Config) { c.TimeoutSeconds = 0 }, wantErr: "timeout"},
		{name: "negative settle", mutate: func(c *Config) { c.SettleSeconds = -1 }, wantErr: "settle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formfill.yaml")
	content := `
url: https://docs.google.com/forms/d/e/example/viewform
csv: out.csv
probability: 0.8
preferences:
  - Female
  - "18-24"
selectors:
  fields: ".fields"
  option: ".option"
  multi_option: ".multi"
  question_title: ".title"
  send_button: ".send"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := validConfig()
	require.NoError(t, cfg.LoadFile(path))
	require.Equal(t, "https://docs.google.com/forms/d/e/example/viewform", cfg.URL)
	require.Equal(t, "out.csv", cfg.CSVPath)
	require.Equal(t, 0.8, cfg.Probability)
	require.Equal(t, []string{"Female", "18-24"}, cfg.Preferences)
	require.Equal(t, ".fields", cfg.Selectors.Fields)
	require.Equal(t, ".send", cfg.Selectors.SendButton)
	require.NoError(t, cfg.Validate())
}

func TestConfigLoadFilePartialKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formfill.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probability: 0.25\n"), 0o644))

	cfg := validConfig()
	require.NoError(t, cfg.LoadFile(path))
	require.Equal(t, 0.25, cfg.Probability)
	require.Equal(t, "https://example.com/form", cfg.URL)
	require.Equal(t, DefaultPreferences(), cfg.Preferences)
}

func TestConfigLoadFileMissing(t *testing.T) {
	cfg := validConfig()
	require.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")))
}
