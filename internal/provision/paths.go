package provision

import (
	"os"
	"path/filepath"

	"github.com/ekisa-team/nomicchat/internal/model"
	"github.com/ekisa-team/nomicchat/internal/platform"
)

// DirName is the artifacts directory name under the user's home.
const DirName = ".nomic"

// Paths are the local locations of the chat executable and the model weights.
type Paths struct {
	Dir        string
	Executable string
	Weights    string
}

// DefaultDir returns <home>/.nomic, or ./.nomic if the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}

	return filepath.Join(home, DirName)
}

// ResolvePaths derives the artifact paths for id on p inside dir.
func ResolvePaths(dir string, id model.Identity, p platform.Platform) Paths {
	return Paths{
		Dir:        dir,
		Executable: filepath.Join(dir, p.ExecutableFilename()),
		Weights:    filepath.Join(dir, id.WeightsFilename()),
	}
}

// DefaultPaths derives the artifact paths for id on the host platform in DefaultDir.
func DefaultPaths(id model.Identity) Paths {
	return ResolvePaths(DefaultDir(), id, platform.Host())
}
