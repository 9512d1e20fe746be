package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekisa-team/nomicchat/internal/backend"
	"github.com/ekisa-team/nomicchat/internal/model"
	"github.com/ekisa-team/nomicchat/internal/provision"
	"github.com/ekisa-team/nomicchat/internal/xfs"
)

const (
	// DefaultIdleTimeout is how long Prompt waits for more output before resolving
	// with what it has.
	DefaultIdleTimeout = 4 * time.Second

	readBufferSize = 4096
)

// Ensurer makes sure the local artifacts exist.
type Ensurer interface {
	EnsureReady(ctx context.Context, force bool) error
}

// Controller owns at most one chat executable process and exchanges prompts with it.
type Controller struct {
	starter        backend.Starter
	ensurer        Ensurer
	logger         *slog.Logger
	options        backend.DecoderOptions
	identity       model.Identity
	paths          provision.Paths
	startupTimeout time.Duration
	idleTimeout    time.Duration
	forceDownload  bool

	mu        sync.Mutex
	state     State
	proc      backend.Process
	pumpDone  chan struct{}
	sessionID string

	// subMu guards sub and streamErr; the stdout pump never takes mu.
	subMu     sync.Mutex
	sub       *subscription
	streamErr error
}

// Option configures a Controller.
type Option func(*Controller)

// WithStarter replaces the process starter.
func WithStarter(s backend.Starter) Option {
	return func(c *Controller) {
		c.starter = s
	}
}

// WithEnsurer replaces the artifact provisioner used by Init.
func WithEnsurer(e Ensurer) Option {
	return func(c *Controller) {
		c.ensurer = e
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithStartupTimeout bounds the wait for the readiness marker. Zero waits forever.
func WithStartupTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.startupTimeout = d
	}
}

// WithIdleTimeout sets the quiet period after which a reply is considered complete.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithForceDownload makes Init refetch both artifacts.
func WithForceDownload(force bool) Option {
	return func(c *Controller) {
		c.forceDownload = force
	}
}

// New creates a controller for id using the given artifact paths.
func New(id model.Identity, paths provision.Paths, opts backend.DecoderOptions, options ...Option) *Controller {
	c := &Controller{
		identity:    id,
		paths:       paths,
		options:     opts.Clone(),
		idleTimeout: DefaultIdleTimeout,
		logger:      slog.Default(),
		state:       StateClosed,
	}
	for _, opt := range options {
		opt(c)
	}

	if c.ensurer == nil {
		c.ensurer = provision.New(id, paths, provision.WithLogger(c.logger))
	}

	return c
}

// NewForModel creates a controller for the named model with artifacts in the
// default location. It fails with model.ErrUnsupportedModel for unknown names.
func NewForModel(name string, forceDownload bool, opts backend.DecoderOptions, options ...Option) (*Controller, error) {
	id, err := model.Parse(name)
	if err != nil {
		return nil, err
	}

	options = append([]Option{WithForceDownload(forceDownload)}, options...)

	return New(id, provision.DefaultPaths(id), opts, options...), nil
}

// Model returns the model identity.
func (c *Controller) Model() model.Identity {
	return c.identity
}

// Paths returns the artifact paths.
func (c *Controller) Paths() provision.Paths {
	return c.paths
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// SessionID returns the id of the live session, or "" when closed.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sessionID
}

// DecoderOptions returns a copy of the options used by the next Open.
func (c *Controller) DecoderOptions() backend.DecoderOptions {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.options.Clone()
}

// SetDecoderOptions replaces the options used by the next Open. A live session keeps
// the options it was started with.
func (c *Controller) SetDecoderOptions(opts backend.DecoderOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.options = opts.Clone()
}

// Init provisions the artifacts, refetching them when the controller was created
// with forceDownload.
func (c *Controller) Init(ctx context.Context) error {
	return c.ensurer.EnsureReady(ctx, c.forceDownload)
}

// Open starts the chat executable and waits until it prints the prompt marker. A
// running session is torn down first.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()

	if c.proc != nil {
		c.logger.Info("Replacing running session", "session", c.sessionID)
		if err := c.closeLocked(); err != nil {
			c.logger.Warn("Failed to stop previous session", "error", err)
		}
	}

	if !xfs.Exists(c.paths.Weights) {
		c.mu.Unlock()
		return fmt.Errorf("%w: model weights %s", ErrArtifactMissing, c.paths.Weights)
	}

	executor, err := backend.NewExecutor(c.paths.Executable, c.starter)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrArtifactMissing, err)
	}

	args := backend.BuildArgs(c.paths.Weights, c.options)

	proc, err := executor.Start(ctx, args)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	id := uuid.NewString()
	log := c.logger.With("session", id)
	ready := make(chan error, 1)
	done := make(chan struct{})

	c.proc = proc
	c.pumpDone = done
	c.sessionID = id
	c.state = StateStarting

	go c.pump(proc.Stdout(), ready, done, log)

	log.Info("Chat executable started", "pid", proc.Pid(), "model", c.identity.String(), "args", args)
	timeout := c.startupTimeout
	c.mu.Unlock()

	err = awaitReady(ctx, ready, timeout)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc != proc {
		// closed or replaced while starting
		return ErrSessionClosed
	}

	if err != nil {
		log.Error("Chat executable did not become ready", "error", err)
		if closeErr := c.closeLocked(); closeErr != nil {
			log.Warn("Failed to stop chat executable", "error", closeErr)
		}
		return err
	}

	c.state = StateReady
	log.Info("Session ready")

	return nil
}

// Close kills the chat executable and waits for it to exit. Closing a closed
// controller is a no-op. A prompt in flight fails with ErrSessionClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc == nil {
		return nil
	}

	return c.closeLocked()
}

// Prompt sends text to the chat executable and returns its reply. The reply ends at
// the end-of-turn marker, with color codes stripped, or after the idle timeout
// elapses with no new output, verbatim. A trailing prompt marker is removed either way.
//
// Canceling ctx abandons the prompt even while the write to stdin is blocked; the
// controller stays busy until that write completes.
func (c *Controller) Prompt(ctx context.Context, text string) (string, error) {
	c.mu.Lock()

	if c.state != StateReady {
		c.mu.Unlock()
		return "", ErrNotInitialized
	}

	c.subMu.Lock()
	if c.sub != nil {
		c.subMu.Unlock()
		c.mu.Unlock()
		return "", ErrBusy
	}
	if c.streamErr != nil {
		err := c.streamErr
		c.subMu.Unlock()
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %w", ErrOutputStream, err)
	}
	sub := newSubscription()
	c.sub = sub
	c.subMu.Unlock()

	stdin := c.proc.Stdin()
	idle := c.idleTimeout
	log := c.logger.With("session", c.sessionID)
	c.mu.Unlock()

	abandoned := false
	defer func() {
		sub.finish()
		if !abandoned {
			c.detach(sub)
		}
	}()

	written := make(chan error, 1)
	go func() {
		_, err := io.WriteString(stdin, text+"\n")
		written <- err
	}()

	select {
	case err := <-written:
		if err != nil {
			select {
			case <-sub.closed:
				return "", ErrSessionClosed
			default:
			}
			return "", fmt.Errorf("write prompt: %w", err)
		}

	case <-sub.closed:
		return "", ErrSessionClosed

	case <-ctx.Done():
		// stay busy until the pending write drains so prompts never interleave on stdin
		abandoned = true
		go func() {
			<-written
			c.detach(sub)
		}()
		log.Debug("Prompt abandoned while writing", "error", ctx.Err())
		return "", ctx.Err()
	}

	log.Debug("Prompt sent", "bytes", len(text))

	var (
		reply strings.Builder
		timer *time.Timer
		idleC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case <-sub.closed:
			return "", ErrSessionClosed

		case <-idleC:
			log.Debug("Reply completed by idle timeout", "bytes", reply.Len(), "idle", idle)
			return trimPrompt(reply.String()), nil

		case ev := <-sub.ch:
			if ev.err != nil {
				select {
				case <-sub.closed:
					return "", ErrSessionClosed
				default:
				}
				return "", fmt.Errorf("%w: %w", ErrOutputStream, ev.err)
			}

			reply.WriteString(ev.data)

			if out, ok := splitEndOfTurn(reply.String()); ok {
				log.Debug("Reply completed by end-of-turn marker", "bytes", len(out))
				return out, nil
			}

			if timer == nil {
				timer = time.NewTimer(idle)
				idleC = timer.C
			} else {
				timer.Reset(idle)
			}
		}
	}
}

// closeLocked kills the process, detaches any prompt in flight and waits for the
// process and the stdout pump to finish. Caller must hold c.mu.
func (c *Controller) closeLocked() error {
	proc, done := c.proc, c.pumpDone
	log := c.logger.With("session", c.sessionID)

	c.proc = nil
	c.pumpDone = nil
	c.sessionID = ""
	c.state = StateClosed

	c.subMu.Lock()
	if c.sub != nil {
		close(c.sub.closed)
		c.sub = nil
	}
	c.subMu.Unlock()

	pid := proc.Pid()

	var killErr error
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		killErr = fmt.Errorf("kill chat executable: %w", err)
	}

	if err := proc.Stdin().Close(); err != nil {
		log.Debug("Failed to close stdin", "error", err)
	}

	if err := proc.Wait(); err != nil {
		log.Debug("Chat executable exited", "pid", pid, "error", err)
	}

	<-done

	c.subMu.Lock()
	c.streamErr = nil
	c.subMu.Unlock()

	log.Info("Chat executable stopped", "pid", pid)

	return killErr
}

// detach clears sub as the prompt in flight, releasing the busy guard.
func (c *Controller) detach(sub *subscription) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.sub == sub {
		c.sub = nil
	}
}

// pump reads stdout until it fails. Until the readiness marker shows up output is
// discarded; afterwards every chunk goes to the prompt in flight, if any.
func (c *Controller) pump(stdout io.Reader, ready chan<- error, done chan<- struct{}, log *slog.Logger) {
	defer close(done)

	buf := make([]byte, readBufferSize)
	started := false

	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			switch {
			case started:
				c.deliver(event{data: chunk}, log)
			case isReady(chunk):
				started = true
				ready <- nil
			}
		}

		if err != nil {
			if !started {
				ready <- fmt.Errorf("%w: %w", ErrProcessExited, err)
			} else {
				c.subMu.Lock()
				c.streamErr = err
				c.subMu.Unlock()

				c.deliver(event{err: err}, log)
			}
			log.Debug("Output stream ended", "error", err)
			return
		}
	}
}

// deliver hands ev to the prompt in flight. Output with no prompt in flight is dropped.
func (c *Controller) deliver(ev event, log *slog.Logger) {
	c.subMu.Lock()
	sub := c.sub
	c.subMu.Unlock()

	if sub == nil {
		if ev.err == nil {
			log.Debug("Dropping output with no prompt in flight", "bytes", len(ev.data))
		}
		return
	}

	select {
	case sub.ch <- ev:
	case <-sub.done:
	case <-sub.closed:
	}
}

// awaitReady waits for the pump to report readiness, the timeout (if non-zero) or
// ctx, whichever comes first.
func awaitReady(ctx context.Context, ready <-chan error, timeout time.Duration) error {
	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case err := <-ready:
		return err
	case <-timeoutC:
		return fmt.Errorf("%w after %s", ErrStartupTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// event is one read from stdout: a chunk of text or the error that ended the stream.
type event struct {
	err  error
	data string
}

// subscription is the per-prompt listener on the stdout pump.
type subscription struct {
	ch     chan event
	done   chan struct{}
	closed chan struct{}
	once   sync.Once
}

// finish stops deliveries to sub.
func (s *subscription) finish() {
	s.once.Do(func() { close(s.done) })
}

func newSubscription() *subscription {
	return &subscription{
		ch:     make(chan event),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
}
