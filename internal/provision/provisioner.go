package provision

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ekisa-team/nomicchat/internal/model"
	"github.com/ekisa-team/nomicchat/internal/platform"
	"github.com/ekisa-team/nomicchat/internal/xfs"
)

// executableMode is owner/group/other executable.
const executableMode fs.FileMode = 0o755

// Artifact identifies one of the two files managed by the Provisioner.
type Artifact int

const (
	// ArtifactExecutable is the chat executable.
	ArtifactExecutable Artifact = iota

	// ArtifactWeights is the model weights file.
	ArtifactWeights
)

// String implements fmt.Stringer.
func (a Artifact) String() string {
	switch a {
	case ArtifactExecutable:
		return "executable"
	case ArtifactWeights:
		return "weights"
	default:
		return fmt.Sprintf("artifact(%d)", int(a))
	}
}

// ArtifactStatus describes the local state of an artifact.
type ArtifactStatus struct {
	Artifact Artifact
	Path     string
	Size     int64
	Present  bool
}

// Provisioner guarantees the chat executable and model weights exist locally.
type Provisioner struct {
	client            *http.Client
	progress          ProgressFunc
	chmod             func(string, fs.FileMode) error
	logger            *slog.Logger
	platform          platform.Platform
	identity          model.Identity
	paths             Paths
	executableBaseURL string
	weightsBaseURL    string
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provisioner) {
		p.client = client
	}
}

// WithProgress sets the download progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Provisioner) {
		p.progress = fn
	}
}

// WithPlatform overrides the host platform used to pick the executable.
func WithPlatform(pl platform.Platform) Option {
	return func(p *Provisioner) {
		p.platform = pl
	}
}

// WithExecutableBaseURL overrides where executables are downloaded from.
func WithExecutableBaseURL(u string) Option {
	return func(p *Provisioner) {
		p.executableBaseURL = u
	}
}

// WithWeightsBaseURL overrides where model weights are downloaded from.
func WithWeightsBaseURL(u string) Option {
	return func(p *Provisioner) {
		p.weightsBaseURL = u
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// New creates a Provisioner for id writing to paths.
func New(id model.Identity, paths Paths, opts ...Option) *Provisioner {
	p := &Provisioner{
		identity: id,
		paths:    paths,
		platform: platform.Host(),
		client: &http.Client{
			// no overall timeout: weights are several gigabytes
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
		chmod:  os.Chmod,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Paths returns the artifact paths.
func (p *Provisioner) Paths() Paths {
	return p.paths
}

// EnsureReady downloads every artifact that is missing, or all of them when force is
// set. Both downloads run concurrently; the first failure cancels the other.
func (p *Provisioner) EnsureReady(ctx context.Context, force bool) error {
	needExecutable := force || !xfs.Exists(p.paths.Executable)
	needWeights := force || !xfs.Exists(p.paths.Weights)

	if !needExecutable && !needWeights {
		p.logger.Debug("Artifacts already present, skipping download",
			"executable", p.paths.Executable,
			"weights", p.paths.Weights,
		)
		return nil
	}

	if err := os.MkdirAll(p.paths.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %w", ErrDownloadFailed, p.paths.Dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if needExecutable {
		g.Go(func() error {
			return p.fetchExecutable(gctx)
		})
	}

	if needWeights {
		g.Go(func() error {
			return p.fetchWeights(gctx)
		})
	}

	return g.Wait()
}

// Status reports the local state of both artifacts.
func (p *Provisioner) Status() []ArtifactStatus {
	out := make([]ArtifactStatus, 0, 2)
	for _, a := range []struct {
		artifact Artifact
		path     string
	}{
		{ArtifactExecutable, p.paths.Executable},
		{ArtifactWeights, p.paths.Weights},
	} {
		size := xfs.FileSize(a.path)
		out = append(out, ArtifactStatus{
			Artifact: a.artifact,
			Path:     a.path,
			Present:  size >= 0,
			Size:     max(size, 0),
		})
	}

	return out
}

// fetchExecutable downloads the executable for the configured platform and marks it
// executable.
func (p *Provisioner) fetchExecutable(ctx context.Context) error {
	url, err := p.platform.ExecutableURL(p.executableBaseURL)
	if err != nil {
		return err
	}

	if err := p.download(ctx, ArtifactExecutable, url, p.paths.Executable); err != nil {
		return err
	}

	if err := p.chmod(p.paths.Executable, executableMode); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPermissionChange, p.paths.Executable, err)
	}

	return nil
}

// fetchWeights downloads the model weights.
func (p *Provisioner) fetchWeights(ctx context.Context) error {
	url, err := p.identity.WeightsURL(p.weightsBaseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	return p.download(ctx, ArtifactWeights, url, p.paths.Weights)
}

// download streams url into dest. A failure mid-stream leaves the partial file in
// place.
func (p *Provisioner) download(ctx context.Context, artifact Artifact, url, dest string) error {
	p.logger.Info("Downloading artifact", "artifact", artifact.String(), "url", url, "path", dest)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %s: create request: %w", ErrDownloadFailed, artifact, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDownloadFailed, artifact, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: HTTP %d from %s", ErrDownloadFailed, artifact, resp.StatusCode, url)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDownloadFailed, artifact, err)
	}

	pw := &progressWriter{
		report:   p.progress,
		artifact: artifact,
		total:    resp.ContentLength,
	}

	written, err := io.Copy(f, io.TeeReader(resp.Body, pw))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		p.logger.Error("Download interrupted",
			"artifact", artifact.String(),
			"path", dest,
			"written", written,
			"error", err,
		)
		return fmt.Errorf("%w: %s: %w", ErrDownloadFailed, artifact, err)
	}

	p.logger.Info("Artifact downloaded",
		"artifact", artifact.String(),
		"path", dest,
		"bytes", written,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return nil
}
