package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/nomicchat/internal/envvar"
)

// Environment is the runtime environment the binary runs in.
type Environment string

const (
	// Development enables debug logging.
	Development Environment = "development"

	// Production is the default environment.
	Production Environment = "production"
)

// FromEnv reads the environment from NOMICCHAT_ENV, defaulting to production.
func FromEnv() Environment {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envvar.NomicchatEnv))) {
	case "dev", "development":
		return Development
	default:
		return Production
	}
}

// IsDevelopment reports whether e is the development environment.
func (e Environment) IsDevelopment() bool {
	return e == Development
}
