package config

import "errors"

// ErrInvalidConfig is returned when the config file fails to parse or validate.
var ErrInvalidConfig = errors.New("invalid config")
