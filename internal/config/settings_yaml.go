package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	appName          = "mentalbank"
	settingsFileName = "settings.yaml"

	defaultAPIURL          = "http://localhost:8080"
	defaultStaleAfterHours = 24
)

// Settings configures the client commands.
type Settings struct {
	APIURL          string `yaml:"api_url"           env:"MBB_API_URL"`
	OwnerID         string `yaml:"owner_id"          env:"MBB_OWNER_ID"`
	StateDir        string `yaml:"state_dir"         env:"MBB_STATE_DIR"`
	StaleAfterHours int    `yaml:"stale_after_hours"`
}

// StaleAfter is how old a persisted timer may be before it is dropped.
func (s Settings) StaleAfter() time.Duration {
	return time.Duration(s.StaleAfterHours) * time.Hour
}

// DefaultSettings returns settings used when no file exists.
func DefaultSettings() Settings {
	settings := Settings{
		APIURL:          defaultAPIURL,
		StaleAfterHours: defaultStaleAfterHours,
	}
	if home, err := os.UserHomeDir(); err == nil {
		settings.StateDir = filepath.Join(home, ".mentalbank", "state")
	}
	return settings
}

// SettingsPath returns the default settings file location.
func SettingsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

// LoadSettings reads client settings from YAML, then applies environment
// overrides. A missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	rawData, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return settings, fmt.Errorf("read settings file: %w", err)
	default:
		var fileData Settings
		if err := yaml.Unmarshal(rawData, &fileData); err != nil {
			return settings, fmt.Errorf("parse settings yaml: %w", err)
		}
		applyYamlSettings(&settings, fileData)
	}

	if err := ParseEnv(&settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// SaveSettings writes client settings to YAML.
func SaveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	serialized, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}
	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

// EnsureOwner gives settings without an owner a fresh one and saves it.
func EnsureOwner(path string, settings *Settings) error {
	if settings.OwnerID != "" {
		return nil
	}
	settings.OwnerID = uuid.NewString()
	return SaveSettings(path, *settings)
}

func applyYamlSettings(settings *Settings, fileData Settings) {
	if fileData.APIURL != "" {
		settings.APIURL = fileData.APIURL
	}
	if fileData.OwnerID != "" {
		settings.OwnerID = fileData.OwnerID
	}
	if fileData.StateDir != "" {
		settings.StateDir = fileData.StateDir
	}
	if fileData.StaleAfterHours > 0 {
		settings.StaleAfterHours = fileData.StaleAfterHours
	}
}
