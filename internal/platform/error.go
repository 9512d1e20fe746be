package platform

import "errors"

// Error definitions for the platform package.
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)
