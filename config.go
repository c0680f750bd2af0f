package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".fragmerge"

// Suffix digits the record splitter is known to produce (see splitter.go).
const (
	minSplitDigits = 1
	maxSplitDigits = 4
)

//go:embed config/settings.yaml
var defaultSettings string

// Settings represents the YAML configuration structure
type Settings struct {
	Output struct {
		CombinedMarker  string `yaml:"combined_marker"`
		TimestampFormat string `yaml:"timestamp_format"`
	} `yaml:"output"`
	Splitter struct {
		Command   string `yaml:"command"`
		MaxDigits int    `yaml:"max_digits"`
	} `yaml:"splitter"`
}

// getConfigPath returns the path to a config file in the .fragmerge directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// loadSettings loads settings from path, falling back to the embedded
// defaults when the file does not exist.
func loadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			data = []byte(defaultSettings)
		} else {
			return nil, fmt.Errorf("reading settings file %s: %w", path, err)
		}
	}
	return parseSettings(data)
}

// loadSettingsRequired loads settings from an explicitly requested path,
// which must exist.
func loadSettingsRequired(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	return parseSettings(data)
}

func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	if settings.Output.CombinedMarker == "" {
		settings.Output.CombinedMarker = "combined"
	}
	if settings.Output.TimestampFormat == "" {
		settings.Output.TimestampFormat = "20060102T1504"
	}
	if settings.Splitter.MaxDigits < minSplitDigits || settings.Splitter.MaxDigits > maxSplitDigits {
		if settings.Splitter.MaxDigits != 0 {
			log.Printf("Warning: splitter.max_digits is %d, defaulting to %d", settings.Splitter.MaxDigits, maxSplitDigits)
		}
		settings.Splitter.MaxDigits = maxSplitDigits
	}

	return &settings, nil
}

// ensureConfigExists creates the config directory and default settings file
// if they don't exist
func ensureConfigExists() error {
	if _, err := os.Stat(defaultConfigDir); os.IsNotExist(err) {
		if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing default settings: %w", err)
		}
	}

	return nil
}
