package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// For mocking in tests.
var osUserHomeDir = os.UserHomeDir

const (
	userConfigDir    = ".config/mwrunner"
	projectConfigDir = ".mwrunner"
	configFileName   = "config.yaml"
)

// Defaults are the tunables that rarely change per invocation and therefore
// live in a config file rather than on the command line.
type Defaults struct {
	// HTTPPort for the development web server.
	HTTPPort int `yaml:"httpPort,omitempty"`
	// Display claimed by Xvfb when the environment has none.
	Display string `yaml:"display,omitempty"`
	// ChromeDriverPort for the browser driver.
	ChromeDriverPort int `yaml:"chromeDriverPort,omitempty"`
	// BackendReadyTimeout bounds every backend readiness wait.
	BackendReadyTimeout time.Duration `yaml:"backendReadyTimeout,omitempty"`
}

// BuiltinDefaults returns the compiled-in defaults.
func BuiltinDefaults() Defaults {
	return Defaults{
		HTTPPort:            9412,
		Display:             ":94",
		ChromeDriverPort:    4444,
		BackendReadyTimeout: 60 * time.Second,
	}
}

// LoadDefaults loads tunables by layering built-in, user, and project
// settings. Missing files are not an error; unreadable ones are.
func LoadDefaults() (Defaults, error) {
	defaults := BuiltinDefaults()

	userPath, err := getUserConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not determine user config path: %v\n", err)
	} else if _, err := os.Stat(userPath); !os.IsNotExist(err) {
		overlay, err := loadDefaultsFromFile(userPath)
		if err != nil {
			return Defaults{}, fmt.Errorf("error loading user config from %s: %w", userPath, err)
		}
		defaults = mergeDefaults(defaults, overlay)
	}

	projectPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not determine project config path: %v\n", err)
	} else if _, err := os.Stat(projectPath); !os.IsNotExist(err) {
		overlay, err := loadDefaultsFromFile(projectPath)
		if err != nil {
			return Defaults{}, fmt.Errorf("error loading project config from %s: %w", projectPath, err)
		}
		defaults = mergeDefaults(defaults, overlay)
	}

	return defaults, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func loadDefaultsFromFile(filePath string) (Defaults, error) {
	var d Defaults
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Defaults{}, err
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, err
	}
	return d, nil
}

// mergeDefaults merges 'overlay' into 'base'; zero values in the overlay
// leave the base untouched.
func mergeDefaults(base, overlay Defaults) Defaults {
	merged := base
	if overlay.HTTPPort != 0 {
		merged.HTTPPort = overlay.HTTPPort
	}
	if overlay.Display != "" {
		merged.Display = overlay.Display
	}
	if overlay.ChromeDriverPort != 0 {
		merged.ChromeDriverPort = overlay.ChromeDriverPort
	}
	if overlay.BackendReadyTimeout != 0 {
		merged.BackendReadyTimeout = overlay.BackendReadyTimeout
	}
	return merged
}
