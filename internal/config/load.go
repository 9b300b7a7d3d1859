package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	EnvAPIKey = "STREAMSCRIBE_API_KEY"
	EnvURL    = "STREAMSCRIBE_URL"
)

var ErrConfigNotFound = errors.New("config not found")

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	return filepath.Join(configDir, "streamscribe", "config.toml"), nil
}

// Load reads the config at path, or at GetConfigPath when path is empty.
// A missing file yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	config := DefaultConfig()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Debug("config: no configuration file, using defaults", "path", path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	} else {
		log.Debug("config: loading configuration", "path", path)
		meta, err := toml.DecodeFile(path, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			log.Warn("config: ignoring unknown keys", "keys", strings.Join(keys, ", "))
		}
	}

	config.ApplyEnv()
	config.applyDefaults()

	return config, nil
}

// LoadExisting is Load for callers that need the file to be there.
func LoadExisting(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: run streamscribe configure", ErrConfigNotFound)
	}
	return Load(path)
}

// ApplyEnv fills the credentials and URL from the environment when the file
// leaves them empty.
func (c *Config) ApplyEnv() {
	if c.Server.APIKey == "" {
		c.Server.APIKey = os.Getenv(EnvAPIKey)
	}
	if c.Server.URL == "" {
		c.Server.URL = os.Getenv(EnvURL)
	}
}

func (c *Config) applyDefaults() {
	if c.Server.UserID == "" {
		c.Server.UserID = uuid.NewString()
		log.Debug("config: generated user id", "user_id", c.Server.UserID)
	}
	c.Session.Language = strings.ToLower(strings.TrimSpace(c.Session.Language))
}

// Save writes cfg to path as TOML, creating the directory if needed. The
// file holds the API key and is only readable by the owner.
func Save(path string, cfg *Config) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	log.Info("config: configuration saved", "path", path)
	return nil
}

const header = `# Streamscribe Configuration
# Written by "streamscribe configure". Command line flags override these values.
#
# server.api_key may be left empty and provided through STREAMSCRIBE_API_KEY.
# session.language is one of "en", "fr", "it".
# recording.timeout = "0s" disables the automatic stop.
# output.mode is "none", "clipboard" (wl-copy), "type" (wtype) or "fallback".

`
