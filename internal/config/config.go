package config

import (
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/nomicchat/internal/envvar"
	"github.com/ekisa-team/nomicchat/internal/provision"
	"github.com/ekisa-team/nomicchat/internal/xfs"
)

// Config holds the configuration of the chat client.
type Config struct {
	Version        string         `json:"version"                   yaml:"version"`
	Model          string         `json:"model"                     yaml:"model"`
	ForceDownload  bool           `json:"force_download,omitempty"  yaml:"force_download,omitempty"`
	DecoderOptions map[string]any `json:"decoder_options,omitempty" yaml:"decoder_options,omitempty"`
	Storage        StorageConfig  `json:"storage,omitempty"         yaml:"storage,omitempty"`
	Sources        SourcesConfig  `json:"sources,omitempty"         yaml:"sources,omitempty"`
	Session        SessionConfig  `json:"session,omitempty"         yaml:"session,omitempty"`
}

// StorageConfig holds where artifacts are kept.
type StorageConfig struct {
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// SourcesConfig overrides the download locations of the artifacts.
type SourcesConfig struct {
	ExecutableBaseURL string `json:"executable_base_url,omitempty" yaml:"executable_base_url,omitempty"`
	ModelBaseURL      string `json:"model_base_url,omitempty"      yaml:"model_base_url,omitempty"`
}

// SessionConfig holds the session timing.
type SessionConfig struct {
	StartupTimeout Duration `json:"startup_timeout,omitempty" yaml:"startup_timeout,omitempty"`
	IdleTimeout    Duration `json:"idle_timeout,omitempty"    yaml:"idle_timeout,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("4s", "1m30s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	if parsed < 0 {
		return fmt.Errorf("duration: %s is negative", s)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Clone returns a deep enough copy of c for handing to another goroutine.
func (c *Config) Clone() *Config {
	out := *c
	out.DecoderOptions = maps.Clone(c.DecoderOptions)
	return &out
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if m := strings.TrimSpace(os.Getenv(envvar.NomicchatModel)); m != "" {
		c.Model = m
	}
	if dir := os.Getenv(envvar.NomicchatHome); dir != "" {
		c.Storage.Dir = dir
	}
}

// StorageDir returns the artifacts directory: NOMICCHAT_HOME, then storage.dir, then
// the default under the user's home.
func (c *Config) StorageDir() string {
	if dir := os.Getenv(envvar.NomicchatHome); dir != "" {
		return xfs.ExpandTilde(dir)
	}
	if c.Storage.Dir != "" {
		return xfs.ExpandTilde(c.Storage.Dir)
	}

	return provision.DefaultDir()
}
