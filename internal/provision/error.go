package provision

import "errors"

// Error definitions for the provision package.
var (
	ErrDownloadFailed   = errors.New("download failed")
	ErrPermissionChange = errors.New("failed to make executable")
)
