package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are the user's defaults for the download command. Flags given on
// the command line take precedence.
type Settings struct {
	OutputDir      string        `yaml:"output_dir"`
	Threads        int           `yaml:"threads"`
	Format         string        `yaml:"format"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	MaxProbePages  int           `yaml:"max_probe_pages"`
	History        *bool         `yaml:"history"`
	HistoryDB      string        `yaml:"history_db"`
}

// Defaults returns the settings used when no config file exists.
func Defaults() Settings {
	history := true
	return Settings{
		OutputDir:      ".",
		Threads:        1,
		Format:         "cbz",
		RequestTimeout: 30 * time.Second,
		MaxProbePages:  500,
		History:        &history,
		HistoryDB:      filepath.Join(baseDir(), "history.db"),
	}
}

// HistoryEnabled reports whether runs should be recorded.
func (s Settings) HistoryEnabled() bool {
	return s.History == nil || *s.History
}

func baseDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".comics"
	}
	return filepath.Join(homeDir, ".comics")
}

// DefaultPath is ~/.comics/config.yaml.
func DefaultPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

// Load reads settings from path on top of the defaults. A missing file is
// not an error.
func Load(path string) (Settings, error) {
	settings := Defaults()

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to read config file: %w", err)
	}

	var file Settings
	if err := yaml.Unmarshal(content, &file); err != nil {
		return settings, fmt.Errorf("failed to parse config file: %w", err)
	}
	settings.merge(file)

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return settings, nil
}

func (s *Settings) merge(o Settings) {
	if o.OutputDir != "" {
		s.OutputDir = o.OutputDir
	}
	if o.Threads != 0 {
		s.Threads = o.Threads
	}
	if o.Format != "" {
		s.Format = o.Format
	}
	if o.RequestTimeout != 0 {
		s.RequestTimeout = o.RequestTimeout
	}
	if o.UserAgent != "" {
		s.UserAgent = o.UserAgent
	}
	if o.MaxProbePages != 0 {
		s.MaxProbePages = o.MaxProbePages
	}
	if o.History != nil {
		s.History = o.History
	}
	if o.HistoryDB != "" {
		s.HistoryDB = o.HistoryDB
	}
}

// Validate rejects values the downloader cannot work with.
func (s Settings) Validate() error {
	if s.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", s.Threads)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if s.MaxProbePages < 1 {
		return fmt.Errorf("max_probe_pages must be at least 1")
	}
	return nil
}
