package am

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/lanes/errors"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete oldest backup")
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// readRawConfig parses configPath into a generic map so keys this package
// does not know about survive a rewrite. A missing file yields an empty map.
func readRawConfig(configPath string) (map[string]interface{}, error) {
	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", configPath)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	return config, nil
}

// writeRawConfig writes config to configPath with backup
func writeRawConfig(config map[string]interface{}, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	if w := GetGlobalWatcher(); w != nil {
		w.MarkOwnWrite()
	}

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	return nil
}

func rawLanes(config map[string]interface{}) []interface{} {
	lanes, _ := config["lanes"].([]interface{})
	return lanes
}

// SaveLane appends a [[lanes]] entry to configPath, creating the file if needed.
func SaveLane(configPath string, l LaneConfig) error {
	candidate := Config{Lanes: []LaneConfig{l}}
	if err := candidate.Validate(); err != nil {
		return err
	}

	config, err := readRawConfig(configPath)
	if err != nil {
		return err
	}

	lanes := rawLanes(config)
	for _, existing := range lanes {
		if m, ok := existing.(map[string]interface{}); ok && m["name"] == l.Name {
			return errors.Newf("lane %q is already declared in %s", l.Name, configPath)
		}
	}

	entry := map[string]interface{}{"name": l.Name}
	if l.Priority != "" {
		entry["priority"] = l.Priority
	}
	config["lanes"] = append(lanes, entry)

	return writeRawConfig(config, configPath)
}

// DeleteLane removes the [[lanes]] entry named name and reports whether one existed.
func DeleteLane(configPath, name string) (bool, error) {
	config, err := readRawConfig(configPath)
	if err != nil {
		return false, err
	}

	lanes := rawLanes(config)
	kept := make([]interface{}, 0, len(lanes))
	for _, existing := range lanes {
		if m, ok := existing.(map[string]interface{}); ok && m["name"] == name {
			continue
		}
		kept = append(kept, existing)
	}
	if len(kept) == len(lanes) {
		return false, nil
	}
	config["lanes"] = kept

	return true, writeRawConfig(config, configPath)
}

// SetTraceEnabled updates trace.enabled in configPath.
func SetTraceEnabled(configPath string, enabled bool) error {
	config, err := readRawConfig(configPath)
	if err != nil {
		return err
	}

	section, ok := config["trace"].(map[string]interface{})
	if !ok {
		if config["trace"] != nil {
			return errors.Newf("trace in %s is not a table (%T)", configPath, config["trace"])
		}
		section = make(map[string]interface{})
		config["trace"] = section
	}
	section["enabled"] = enabled

	return writeRawConfig(config, configPath)
}

// DefaultWritePath is where CLI edits go: the project lanes.toml if one is
// found, otherwise ./lanes.toml.
func DefaultWritePath() string {
	if p := findProjectConfig(); p != "" {
		return p
	}
	return fmt.Sprintf("./%s", ProjectConfigName)
}
