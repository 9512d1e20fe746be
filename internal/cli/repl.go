package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ekisa-team/nomicchat/internal/backend"
	"github.com/ekisa-team/nomicchat/internal/model"
	"github.com/ekisa-team/nomicchat/internal/provision"
	"github.com/ekisa-team/nomicchat/internal/session"
)

const inputPrompt = "you> "

// Session is the part of session.Controller the CLI drives.
type Session interface {
	Open(ctx context.Context) error
	Close() error
	Prompt(ctx context.Context, text string) (string, error)
	State() session.State
	SessionID() string
	Model() model.Identity
	DecoderOptions() backend.DecoderOptions
}

// StatusFunc reports the local artifacts.
type StatusFunc func() []provision.ArtifactStatus

// REPL runs the interactive chat loop.
type REPL struct {
	session Session
	in      LineReader
	out     io.Writer
	status  StatusFunc
	logger  *slog.Logger
}

// NewREPL creates a REPL reading from in and writing replies to out.
func NewREPL(s Session, in LineReader, out io.Writer, status StatusFunc, logger *slog.Logger) *REPL {
	if logger == nil {
		logger = slog.Default()
	}

	return &REPL{
		session: s,
		in:      in,
		out:     out,
		status:  status,
		logger:  logger,
	}
}

// Run opens the session and reads prompts until input ends, /quit is entered or ctx
// is canceled. The session is closed on return.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.session.Open(ctx); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := r.session.Close(); err != nil {
			r.logger.Warn("Failed to close session", "error", err)
		}
	}()

	fmt.Fprintf(r.out, "Chatting with %s. Type /help for commands.\n", r.session.Model())

	for {
		input, err := r.in.ReadLine(inputPrompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := r.handleSlashCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(r.out, "[Error] %v\n", err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		reply, err := r.session.Prompt(ctx, input)
		switch {
		case err == nil:
			fmt.Fprintln(r.out, strings.TrimSpace(reply))
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, session.ErrBusy):
			fmt.Fprintln(r.out, "[Error] still answering the previous prompt")
		default:
			r.logger.Error("Prompt failed", "session", r.session.SessionID(), "error", err)
			fmt.Fprintf(r.out, "[Error] %v (type /restart to start a new session)\n", err)
		}
	}
}

// handleSlashCommand processes slash commands.
// Returns (keepGoing, error) where keepGoing=false means exit.
func (r *REPL) handleSlashCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	command := strings.ToLower(parts[0])

	switch command {
	case "/help", "/h", "/?", "/":
		r.printHelp()
		return true, nil

	case "/restart", "/r":
		if err := r.session.Open(ctx); err != nil {
			return true, fmt.Errorf("restart session: %w", err)
		}
		fmt.Fprintln(r.out, "[Session restarted]")
		return true, nil

	case "/status", "/s":
		r.printStatus()
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

func (r *REPL) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/restart, /r", "Restart the chat executable"},
		{"/status, /s", "Show session and artifact status"},
		{"/quit, /q", "Exit chat"},
	}

	fmt.Fprintln(r.out, "Available commands:")
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %-15s %s\n", c.cmd, c.desc)
	}
	fmt.Fprintln(r.out, "Ctrl+D exits.")
}

func (r *REPL) printStatus() {
	fmt.Fprintf(r.out, "Model:    %s\n", r.session.Model())
	fmt.Fprintf(r.out, "State:    %s\n", r.session.State())
	if id := r.session.SessionID(); id != "" {
		fmt.Fprintf(r.out, "Session:  %s\n", id)
	}
	if args := backend.BuildArgs("", r.session.DecoderOptions()); len(args) > 2 {
		fmt.Fprintf(r.out, "Options:  %s\n", strings.Join(args[2:], " "))
	}

	if r.status != nil {
		PrintArtifacts(r.out, r.status())
	}
}
