package platform

import (
	"fmt"
	"net/url"
	"runtime"
)

// DefaultExecutableBaseURL is where the prebuilt chat executables are published.
const DefaultExecutableBaseURL = "https://github.com/nomic-ai/gpt4all/blob/main/chat/"

// ExecutableName is the local file name of the chat executable.
const ExecutableName = "gpt4all"

// Platform identifies an operating system and CPU architecture pair.
type Platform struct {
	OS   string
	Arch string
}

// Host returns the platform this binary is running on.
func Host() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// String implements fmt.Stringer.
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// ExecutableFilename returns the local executable file name for p.
func (p Platform) ExecutableFilename() string {
	if p.OS == "windows" {
		return ExecutableName + ".exe"
	}
	return ExecutableName
}

// asset returns the published asset name for p. Only darwin distinguishes
// architectures.
func (p Platform) asset() (string, error) {
	switch p.OS {
	case "darwin":
		if p.Arch == "arm64" {
			return "gpt4all-lora-quantized-OSX-m1", nil
		}
		return "gpt4all-lora-quantized-OSX-intel", nil
	case "linux":
		return "gpt4all-lora-quantized-linux-x86", nil
	case "windows":
		return "gpt4all-lora-quantized-win64.exe", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, p)
	}
}

// ExecutableURL returns the download URL of the chat executable for p under baseURL.
// An empty baseURL selects DefaultExecutableBaseURL.
func (p Platform) ExecutableURL(baseURL string) (string, error) {
	name, err := p.asset()
	if err != nil {
		return "", err
	}

	if baseURL == "" {
		baseURL = DefaultExecutableBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse executable base url: %w", err)
	}

	u = u.JoinPath(name)
	if u.Host == "github.com" {
		// blob pages only serve the file itself with raw=true
		q := u.Query()
		q.Set("raw", "true")
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}
