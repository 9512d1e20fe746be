package session

import "errors"

// Error definitions for the session package.
var (
	ErrNotInitialized  = errors.New("session not initialized: call Open first")
	ErrBusy            = errors.New("a prompt is already in flight")
	ErrStartupTimeout  = errors.New("timed out waiting for the chat executable to become ready")
	ErrProcessExited   = errors.New("chat executable exited before becoming ready")
	ErrSessionClosed   = errors.New("session closed")
	ErrOutputStream    = errors.New("output stream error")
	ErrArtifactMissing = errors.New("artifact missing")
)
