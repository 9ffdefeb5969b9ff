package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// loadPresetFiles reads YAML preset files and merges them in declaration
// order. Later files override earlier files for the same preset names.
func loadPresetFiles(configDir string, files []string) (map[string]Preset, error) {
	merged := make(map[string]Preset)

	for _, file := range files {
		path := presetPath(configDir, file)

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read preset file %q: %w", file, err)
		}

		var presets map[string]Preset
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &presets); err != nil {
			return nil, fmt.Errorf("parse preset file %q: %w", file, err)
		}

		merged = mergePresets(merged, presets)
	}

	return merged, nil
}

func presetPath(configDir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(configDir, file)
}

// mergePresets returns base overlaid with override. Presets are replaced
// whole, never merged field by field.
func mergePresets(base, override map[string]Preset) map[string]Preset {
	out := make(map[string]Preset, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
