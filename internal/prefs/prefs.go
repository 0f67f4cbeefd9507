// Package prefs persists console preferences in
// ~/.config/gatehouse/prefs.toml.
package prefs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme    string `toml:"theme"`
	LastView string `toml:"last_view,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/gatehouse/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Defaults returns the preferences used when nothing is saved.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme}
}

// Load reads preferences from path. A missing, unreadable or malformed file
// yields the defaults without an error.
func Load(path string) (Prefs, error) {
	prefs := Defaults()
	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return prefs, nil
	}
	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Defaults(), nil
	}
	prefs.Theme = strings.TrimSpace(prefs.Theme)
	prefs.LastView = strings.TrimSpace(prefs.LastView)
	if prefs.Theme == "" {
		prefs.Theme = defaultTheme
	}
	return prefs, nil
}

// Save writes preferences to the given path atomically, creating directories
// as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := atomic.WriteFile(resolved, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
