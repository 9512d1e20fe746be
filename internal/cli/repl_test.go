package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/nomicchat/internal/backend"
	"github.com/ekisa-team/nomicchat/internal/model"
	"github.com/ekisa-team/nomicchat/internal/provision"
	"github.com/ekisa-team/nomicchat/internal/session"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) Open(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSession) Close() error {
	return m.Called().Error(0)
}

func (m *MockSession) Prompt(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *MockSession) State() session.State {
	return m.Called().Get(0).(session.State)
}

func (m *MockSession) SessionID() string {
	return m.Called().String(0)
}

func (m *MockSession) Model() model.Identity {
	return model.GPT4AllLoraQuantized
}

func (m *MockSession) DecoderOptions() backend.DecoderOptions {
	return backend.DecoderOptions{"temp": 0.1}
}

// scriptedReader returns its lines in order, then io.EOF.
type scriptedReader struct {
	lines   []string
	prompts int
}

func (r *scriptedReader) ReadLine(string) (string, error) {
	r.prompts++
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func newREPL(s Session, lines ...string) (*REPL, *bytes.Buffer) {
	out := &bytes.Buffer{}
	status := func() []provision.ArtifactStatus {
		return []provision.ArtifactStatus{
			{Artifact: provision.ArtifactExecutable, Path: "/home/u/.nomic/gpt4all", Present: true, Size: 2048},
			{Artifact: provision.ArtifactWeights, Path: "/home/u/.nomic/gpt4all-lora-quantized.bin"},
		}
	}

	return NewREPL(s, &scriptedReader{lines: lines}, out, status, slog.New(slog.NewTextHandler(io.Discard, nil))), out
}

func TestREPL_PromptsUntilEOF(t *testing.T) {
	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Once()
	s.On("Prompt", mock.Anything, "hi there").Return("Hello! ", nil).Once()
	s.On("Prompt", mock.Anything, "bye").Return("Goodbye.", nil).Once()
	s.On("Close").Return(nil).Once()

	r, out := newREPL(s, "hi there", "   ", "bye")
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "Chatting with gpt4all-lora-quantized")
	assert.Contains(t, out.String(), "Hello!\n")
	assert.Contains(t, out.String(), "Goodbye.\n")
	s.AssertExpectations(t)
}

func TestREPL_Quit(t *testing.T) {
	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Once()
	s.On("Close").Return(nil).Once()

	r, _ := newREPL(s, "/quit", "never sent")
	require.NoError(t, r.Run(context.Background()))

	s.AssertNotCalled(t, "Prompt", mock.Anything, mock.Anything)
	s.AssertExpectations(t)
}

func TestREPL_OpenFailure(t *testing.T) {
	s := new(MockSession)
	s.On("Open", mock.Anything).Return(session.ErrArtifactMissing).Once()

	r, _ := newREPL(s, "hello")
	err := r.Run(context.Background())

	assert.ErrorIs(t, err, session.ErrArtifactMissing)
	s.AssertNotCalled(t, "Close")
}

func TestREPL_Restart(t *testing.T) {
	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Twice()
	s.On("Close").Return(nil).Once()

	r, out := newREPL(s, "/restart")
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "[Session restarted]")
	s.AssertExpectations(t)
}

func TestREPL_Status(t *testing.T) {
	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Once()
	s.On("Close").Return(nil).Once()
	s.On("State").Return(session.StateReady)
	s.On("SessionID").Return("4f1c")

	r, out := newREPL(s, "/status")
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "State:    ready")
	assert.Contains(t, out.String(), "Session:  4f1c")
	assert.Contains(t, out.String(), "Options:  --temp 0.1")
	assert.Contains(t, out.String(), "2.0 kB")
	assert.Contains(t, out.String(), "missing")
}

func TestREPL_HelpAndUnknownCommand(t *testing.T) {
	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Once()
	s.On("Close").Return(nil).Once()

	r, out := newREPL(s, "/help", "/frobnicate")
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "/restart, /r")
	assert.Contains(t, out.String(), "unknown command: /frobnicate")
}

func TestREPL_PromptErrorKeepsGoing(t *testing.T) {
	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Once()
	s.On("Prompt", mock.Anything, "first").Return("", session.ErrOutputStream).Once()
	s.On("Prompt", mock.Anything, "second").Return("", session.ErrBusy).Once()
	s.On("Prompt", mock.Anything, "third").Return("fine", nil).Once()
	s.On("SessionID").Return("4f1c")
	s.On("Close").Return(nil).Once()

	r, out := newREPL(s, "first", "second", "third")
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "/restart")
	assert.Contains(t, out.String(), "still answering")
	assert.Contains(t, out.String(), "fine\n")
	s.AssertExpectations(t)
}

func TestREPL_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Once()
	s.On("Prompt", mock.Anything, "hello").Run(func(mock.Arguments) { cancel() }).Return("", context.Canceled).Once()
	s.On("Close").Return(nil).Once()

	r, _ := newREPL(s, "hello", "not read")
	err := r.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	s.AssertExpectations(t)
}

func TestREPL_ReadError(t *testing.T) {
	s := new(MockSession)
	s.On("Open", mock.Anything).Return(nil).Once()
	s.On("Close").Return(nil).Once()

	r := NewREPL(s, failingReader{}, io.Discard, nil, nil)
	err := r.Run(context.Background())

	assert.ErrorContains(t, err, "terminal gone")
}

type failingReader struct{}

func (failingReader) ReadLine(string) (string, error) {
	return "", errors.New("terminal gone")
}
