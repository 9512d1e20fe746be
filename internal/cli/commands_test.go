package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/nomicchat/internal/provision"
	"github.com/ekisa-team/nomicchat/internal/session"
)

type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) EnsureReady(ctx context.Context, force bool) error {
	return m.Called(ctx, force).Error(0)
}

func (m *MockProvisioner) Status() []provision.ArtifactStatus {
	return m.Called().Get(0).([]provision.ArtifactStatus)
}

func TestDownload(t *testing.T) {
	p := new(MockProvisioner)
	p.On("EnsureReady", mock.Anything, true).Return(nil).Once()
	p.On("Status").Return([]provision.ArtifactStatus{
		{Artifact: provision.ArtifactWeights, Path: "/w.bin", Present: true, Size: 4_200_000_000},
	}).Once()

	var out bytes.Buffer
	require.NoError(t, Download(context.Background(), p, true, &out))

	assert.Equal(t, "weights:    4.2 GB    /w.bin\n", out.String())
	p.AssertExpectations(t)
}

func TestDownload_Failure(t *testing.T) {
	p := new(MockProvisioner)
	p.On("EnsureReady", mock.Anything, false).Return(provision.ErrDownloadFailed).Once()

	var out bytes.Buffer
	err := Download(context.Background(), p, false, &out)

	assert.ErrorIs(t, err, provision.ErrDownloadFailed)
	assert.Empty(t, out.String())
	p.AssertNotCalled(t, "Status")
}

func TestAsk(t *testing.T) {
	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Once()
	s.On("Prompt", mock.Anything, "why is the sky blue?").Return("Rayleigh scattering.\n", nil).Once()
	s.On("Close").Return(nil).Once()

	var out bytes.Buffer
	require.NoError(t, Ask(context.Background(), s, "  why is the sky blue?  ", &out))

	assert.Equal(t, "Rayleigh scattering.\n", out.String())
	s.AssertExpectations(t)
}

func TestAsk_Empty(t *testing.T) {
	s := new(MockSession)

	err := Ask(context.Background(), s, "   ", &bytes.Buffer{})

	assert.ErrorIs(t, err, ErrEmptyPrompt)
	s.AssertNotCalled(t, "Open", mock.Anything)
}

func TestAsk_PromptAndCloseErrors(t *testing.T) {
	closeErr := errors.New("kill failed")

	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Once()
	s.On("Prompt", mock.Anything, "hi").Return("", session.ErrOutputStream).Once()
	s.On("Close").Return(closeErr).Once()

	err := Ask(context.Background(), s, "hi", &bytes.Buffer{})

	assert.ErrorIs(t, err, session.ErrOutputStream)
	assert.ErrorIs(t, err, closeErr)
}

func TestPrintArtifacts(t *testing.T) {
	var out bytes.Buffer
	PrintArtifacts(&out, []provision.ArtifactStatus{
		{Artifact: provision.ArtifactExecutable, Path: "/x/gpt4all", Present: true, Size: 1000},
		{Artifact: provision.ArtifactWeights, Path: "/x/m.bin"},
	})

	assert.Equal(t, "executable: 1.0 kB    /x/gpt4all\nweights:    missing   /x/m.bin\n", out.String())
}
