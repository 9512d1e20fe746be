package session

// State is the lifecycle state of a Controller.
type State string

const (
	// StateClosed means no process is running.
	StateClosed State = "closed"

	// StateStarting means the process is running but has not printed the prompt marker yet.
	StateStarting State = "starting"

	// StateReady means the process accepts prompts.
	StateReady State = "ready"
)
