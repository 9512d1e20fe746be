package envvar

const (
	// NomicchatEnv is the environment variable used to determine the environment
	NomicchatEnv = "NOMICCHAT_ENV"

	// NomicchatHome is the environment variable used to override the artifacts directory
	NomicchatHome = "NOMICCHAT_HOME"

	// NomicchatModel is the environment variable used to override the configured model
	NomicchatModel = "NOMICCHAT_MODEL"
)
