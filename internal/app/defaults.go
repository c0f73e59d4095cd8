package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"giftwise/internal/config"
)

// Defaults holds the default file locations.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns the default locations, checking environment variables first:
//   - GIFTWISE_CONFIG_PATH: config file (default ~/.config/giftwise.toml)
//   - GIFTWISE_HOME: data directory (default ~/.local/share/giftwise)
func GetDefaults() (Defaults, error) {
	configPath := os.Getenv("GIFTWISE_CONFIG_PATH")
	baseDir := os.Getenv("GIFTWISE_HOME")

	if configPath == "" || baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Defaults{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if configPath == "" {
			configPath = filepath.Join(home, ".config", "giftwise.toml")
		}
		if baseDir == "" {
			baseDir = filepath.Join(home, ".local", "share", "giftwise")
		}
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// LoadConfig loads ./.env, then the config file, then GIFTWISE_* overrides.
// Without a config file the defaults rooted at d.BaseDir are used.
func LoadConfig(d Defaults) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg, err := config.ReadFromFile(d.ConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.NewConfig(d.BaseDir)
	} else if err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
