package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/ekisa-team/nomicchat/internal/model"
	"github.com/ekisa-team/nomicchat/internal/platform"
	"github.com/ekisa-team/nomicchat/internal/session"
)

// Version is the config format version written by this release.
const Version = "1"

// FileName is the config file name inside DefaultConfigPath.
const FileName = "config.yaml"

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version: Version,
		Model:   string(model.Default),
		Sources: SourcesConfig{
			ExecutableBaseURL: platform.DefaultExecutableBaseURL,
			ModelBaseURL:      model.DefaultWeightsBaseURL,
		},
		Session: SessionConfig{
			IdleTimeout: Duration(session.DefaultIdleTimeout),
		},
	}
}

// DefaultConfigPath returns the default directory for the nomicchat config.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "nomicchat")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "nomicchat")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "nomicchat")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "nomicchat")
		}
		return filepath.Join(home, ".config", "nomicchat")
	}
}

// DefaultConfigFile returns the default config file path.
func DefaultConfigFile() string {
	return filepath.Join(DefaultConfigPath(), FileName)
}
