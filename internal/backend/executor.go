package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Process is a running subprocess whose stdin and stdout are pipes.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Pid() int

	// Kill terminates the process without waiting for it to exit.
	Kill() error

	// Wait blocks until the process has exited.
	Wait() error
}

// Starter is the interface for starting processes.
type Starter interface {
	Start(ctx context.Context, name string, args []string) (Process, error)
}

// ExecStarter uses os/exec. The process lifetime is not bound to ctx.
type ExecStarter struct{}

// Start starts a command with stdin/stdout piped and stderr discarded.
func (ExecStarter) Start(ctx context.Context, name string, args []string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(name, args...)
	cmd.Stderr = nil

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

// Executor starts the chat executable.
type Executor struct {
	starter    Starter
	binaryPath string
}

// NewExecutor creates an executor for binaryPath. A nil starter selects ExecStarter.
func NewExecutor(binaryPath string, starter Starter) (*Executor, error) {
	info, err := os.Stat(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBinaryNotFound, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrBinaryNotFound, binaryPath)
	}

	if starter == nil {
		starter = ExecStarter{}
	}

	return &Executor{
		binaryPath: binaryPath,
		starter:    starter,
	}, nil
}

// BinaryPath returns the path of the executable.
func (e *Executor) BinaryPath() string {
	return e.binaryPath
}

// Start launches the executable with args.
func (e *Executor) Start(ctx context.Context, args []string) (Process, error) {
	proc, err := e.starter.Start(ctx, e.binaryPath, args)
	if err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	return proc, nil
}
