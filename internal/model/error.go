package model

import "errors"

// Error definitions for the model package.
var (
	ErrUnsupportedModel = errors.New("unsupported model")
)
