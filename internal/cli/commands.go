package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ekisa-team/nomicchat/internal/provision"
)

// ErrEmptyPrompt is returned by Ask when there is nothing to send.
var ErrEmptyPrompt = errors.New("empty prompt")

// Provisioner is the part of provision.Provisioner the CLI drives.
type Provisioner interface {
	EnsureReady(ctx context.Context, force bool) error
	Status() []provision.ArtifactStatus
}

// Download fetches missing artifacts (all of them when force is set) and prints
// where they ended up.
func Download(ctx context.Context, p Provisioner, force bool, out io.Writer) error {
	if err := p.EnsureReady(ctx, force); err != nil {
		return err
	}

	PrintArtifacts(out, p.Status())
	return nil
}

// Ask opens a session, sends a single prompt and prints the reply.
func Ask(ctx context.Context, s Session, text string, out io.Writer) (err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyPrompt
	}

	if err := s.Open(ctx); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()

	reply, err := s.Prompt(ctx, text)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, strings.TrimSpace(reply))
	return nil
}

// PrintArtifacts prints one line per artifact with its size, or "missing".
func PrintArtifacts(out io.Writer, statuses []provision.ArtifactStatus) {
	for _, s := range statuses {
		size := "missing"
		if s.Present {
			size = humanize.Bytes(uint64(s.Size))
		}
		fmt.Fprintf(out, "%-11s %-9s %s\n", s.Artifact.String()+":", size, s.Path)
	}
}
