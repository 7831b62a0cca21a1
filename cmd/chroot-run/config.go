package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// ErrDuplicateConfigFiles is returned when both .json and .jsonc config files exist.
var ErrDuplicateConfigFiles = errors.New("duplicate config files")

// Named profiles accepted in config files.
const (
	profileNameMinimal = "minimal"
	profileNameFull    = "full"
)

// Config holds the application configuration.
type Config struct {
	// ProfileName selects a named default profile: "minimal" or "full".
	ProfileName string `json:"profile,omitempty"`

	// Env is overlaid onto the session's base environment.
	Env map[string]string `json:"env,omitempty"`

	// Debug enables echoing of constructed command lines.
	Debug *bool `json:"debug,omitempty"`
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	ConfigPath string            // --config flag value
	Env        map[string]string // environment variables (for XDG_CONFIG_HOME)
}

// LoadConfig loads configuration with the following precedence (later
// overrides earlier):
//  1. Global config: $XDG_CONFIG_HOME/chroot-run/config.json or config.jsonc
//     (defaults to ~/.config/chroot-run/) - loaded if it exists
//  2. Explicit --config path, when given
//
// Both .json and .jsonc files support comments via tailscale/hujson.
// If both .json and .jsonc exist at the same location, it's an error.
func LoadConfig(input LoadConfigInput) (Config, error) {
	var cfg Config

	globalBase, err := userConfigBasePath(input.Env)
	if err != nil {
		return Config{}, err
	}

	if globalBase != "" {
		globalPath, findErr := findConfigFile(globalBase)
		if findErr == nil {
			globalCfg, loadErr := loadConfigFile(globalPath)
			if loadErr != nil {
				return Config{}, loadErr
			}

			cfg = mergeConfigs(&cfg, &globalCfg)
		} else if !errors.Is(findErr, os.ErrNotExist) {
			return Config{}, findErr
		}
	}

	if input.ConfigPath != "" {
		explicitCfg, loadErr := loadConfigFile(input.ConfigPath)
		if loadErr != nil {
			return Config{}, loadErr
		}

		cfg = mergeConfigs(&cfg, &explicitCfg)
	}

	err = validateConfig(cfg)
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	switch cfg.ProfileName {
	case "", profileNameMinimal, profileNameFull:
		return nil
	default:
		return fmt.Errorf("unknown profile %q in config, expected %q or %q",
			cfg.ProfileName, profileNameMinimal, profileNameFull)
	}
}

// userConfigBasePath returns the global config path without extension, or ""
// when no config directory can be determined.
func userConfigBasePath(env map[string]string) (string, error) {
	configHome := env["XDG_CONFIG_HOME"]
	if configHome == "" {
		home := env["HOME"]
		if home == "" {
			return "", nil
		}

		configHome = filepath.Join(home, ".config")
	}

	return filepath.Join(configHome, "chroot-run", "config"), nil
}

// findConfigFile checks for both .json and .jsonc at basePath and returns an
// error if both exist.
func findConfigFile(basePath string) (string, error) {
	jsonPath := basePath + ".json"
	jsoncPath := basePath + ".jsonc"

	jsonExists, jsonErr := fileExists(jsonPath)
	jsoncExists, jsoncErr := fileExists(jsoncPath)

	if jsonErr != nil {
		return "", jsonErr
	}

	if jsoncErr != nil {
		return "", jsoncErr
	}

	if jsonExists && jsoncExists {
		return "", fmt.Errorf("%w: both %s and %s exist; remove one", ErrDuplicateConfigFiles, jsonPath, jsoncPath)
	}

	if jsonExists {
		return jsonPath, nil
	}

	if jsoncExists {
		return jsoncPath, nil
	}

	return "", os.ErrNotExist
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("checking file %s: %w", path, err)
	}

	if info.IsDir() {
		return false, nil
	}

	return true, nil
}

// loadConfigFile loads and parses a JSON/JSONC config file.
// Both .json and .jsonc files support comments via hujson.
func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	// Standardize JSONC to JSON (handles comments in both .json and .jsonc)
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// mergeConfigs merges override into base, with override taking precedence.
// Empty/zero values in override do not override base values.
func mergeConfigs(base, override *Config) Config {
	result := *base

	if override.ProfileName != "" {
		result.ProfileName = override.ProfileName
	}

	if len(override.Env) > 0 {
		if result.Env == nil {
			result.Env = make(map[string]string, len(override.Env))
		}

		for k, v := range override.Env {
			result.Env[k] = v
		}
	}

	if override.Debug != nil {
		result.Debug = override.Debug
	}

	return result
}
