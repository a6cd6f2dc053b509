package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultProfileName = "default"

// UserConfig represents ~/.quickcontroller/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile is a named set of defaults. Passwords are never stored.
type Profile struct {
	APIURL string `yaml:"api-url,omitempty"`
	Email  string `yaml:"email,omitempty"`
	Output string `yaml:"output,omitempty"`
}

// ActiveProfile returns the profile named by override, or the current profile
// when override is empty.
func (c *UserConfig) ActiveProfile(override string) (Profile, error) {
	name := c.CurrentProfile
	if override != "" {
		name = override
	}
	if name == "" {
		name = defaultProfileName
	}
	p, ok := c.Profiles[name]
	if !ok {
		if override != "" {
			return Profile{}, fmt.Errorf("profile %q not found", override)
		}
		return Profile{}, nil
	}
	return p, nil
}

// ConfigDir returns the path to ~/.quickcontroller/.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".quickcontroller")
}

// ConfigPath returns the path to ~/.quickcontroller/config.yaml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadUserConfig reads the profile file.
func LoadUserConfig() (*UserConfig, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return &cfg, nil
}

// SaveUserConfig writes the profile file.
func SaveUserConfig(cfg *UserConfig) error {
	if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
