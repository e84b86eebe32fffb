package engine

import "errors"

var (
	// ErrNotConfigured indicates the config file is missing or incomplete.
	ErrNotConfigured = errors.New("loopvault is not configured")

	// ErrUnknownWorkflow indicates a workflow name with no registry entry.
	ErrUnknownWorkflow = errors.New("unknown workflow")
)
