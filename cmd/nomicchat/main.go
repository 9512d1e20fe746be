package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/ekisa-team/nomicchat/internal/backend"
	"github.com/ekisa-team/nomicchat/internal/cli"
	"github.com/ekisa-team/nomicchat/internal/config"
	"github.com/ekisa-team/nomicchat/internal/env"
	"github.com/ekisa-team/nomicchat/internal/logger"
	"github.com/ekisa-team/nomicchat/internal/model"
	"github.com/ekisa-team/nomicchat/internal/platform"
	"github.com/ekisa-team/nomicchat/internal/provision"
	"github.com/ekisa-team/nomicchat/internal/session"
)

const usage = `Usage: nomicchat [flags] [command]

Commands:
  chat          interactive chat (default)
  download      fetch the chat executable and model weights
  status        show local artifacts
  ask <prompt>  send one prompt and print the reply

Flags:
`

// optFlags collects repeated -opt key=value flags.
type optFlags backend.DecoderOptions

func (o optFlags) String() string {
	return strings.Join(backend.BuildArgs("", backend.DecoderOptions(o))[2:], " ")
}

func (o optFlags) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	o[key] = value
	return nil
}

func main() {
	opts := optFlags{}

	var (
		flagConfigPath = flag.String("config", config.DefaultConfigFile(), "Path to config file")
		flagModel      = flag.String("model", "", "Model to use ("+strings.Join(model.Names(), ", ")+")")
		flagForce      = flag.Bool("force", false, "Download artifacts even if they exist")
		flagLogFile    = flag.String("log-file", "", "Also write JSON logs to this rotating file")
		flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Var(opts, "opt", "Decoder option passed to the chat executable as --key value (repeatable)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	environment := env.FromEnv()

	logOpts := []logger.Option{}
	if *flagLogFile != "" {
		logOpts = append(logOpts, logger.WithLogToFile(true), logger.WithLogFile(*flagLogFile))
	}
	if *flagDebug {
		logOpts = append(logOpts, logger.WithLevel(slog.LevelDebug))
	}
	slog.SetDefault(logger.New(environment, logOpts...))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &app{
		configPath: *flagConfigPath,
		model:      strings.TrimSpace(*flagModel),
		force:      *flagForce,
		opts:       backend.DecoderOptions(opts),
	}

	if err := app.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

type app struct {
	configPath string
	model      string
	force      bool
	opts       backend.DecoderOptions

	mu         sync.Mutex
	cfg        *config.Config
	identity   model.Identity
	paths      provision.Paths
	reporter   *provision.ConsoleReporter
	prov       *provision.Provisioner
	controller *session.Controller
}

func (a *app) run(ctx context.Context, args []string) error {
	command := "chat"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	// reject before provisioning, which may download gigabytes
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if command == "ask" && prompt == "" {
		return cli.ErrEmptyPrompt
	}

	if command == "chat" {
		w, err := config.NewWatcher(a.configPath, a.onReload)
		switch {
		case err == nil:
			defer w.Close()
			a.cfg = w.Snapshot().Clone()
		case errors.Is(err, config.ErrInvalidConfig):
			return err
		default:
			// usually the config directory does not exist
			slog.Debug("Config hot reload disabled", "path", a.configPath, "error", err)
		}
	}

	if a.cfg == nil {
		cfg, err := config.LoadAndValidate(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	if err := a.setup(); err != nil {
		return err
	}

	switch command {
	case "chat":
		return a.chat(ctx)
	case "download":
		defer a.reporter.Done()
		return cli.Download(ctx, a.prov, a.force || a.cfg.ForceDownload, os.Stdout)
	case "status":
		fmt.Printf("%-11s %s\n", "model:", a.identity)
		cli.PrintArtifacts(os.Stdout, a.prov.Status())
		return nil
	case "ask":
		if err := a.init(ctx); err != nil {
			return err
		}
		return cli.Ask(ctx, a.controller, prompt, os.Stdout)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// setup resolves the model and artifact paths and wires the provisioner and the
// session controller.
func (a *app) setup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.applyOverrides(a.cfg)

	id, err := model.Parse(a.cfg.Model)
	if err != nil {
		return err
	}
	a.identity = id
	a.paths = provision.ResolvePaths(a.cfg.StorageDir(), id, platform.Host())

	a.reporter = provision.NewConsoleReporter(os.Stderr, slog.Default())
	a.prov = provision.New(id, a.paths,
		provision.WithProgress(a.reporter.Report),
		provision.WithExecutableBaseURL(a.cfg.Sources.ExecutableBaseURL),
		provision.WithWeightsBaseURL(a.cfg.Sources.ModelBaseURL),
		provision.WithLogger(slog.Default()),
	)

	a.controller = session.New(id, a.paths, a.decoderOptions(a.cfg),
		session.WithEnsurer(a.prov),
		session.WithLogger(slog.Default()),
		session.WithStartupTimeout(a.cfg.Session.StartupTimeout.Std()),
		session.WithIdleTimeout(a.cfg.Session.IdleTimeout.Std()),
		session.WithForceDownload(a.force || a.cfg.ForceDownload),
	)

	slog.Debug("Client configured",
		"model", id.String(),
		"dir", a.paths.Dir,
		"config", a.configPath,
	)

	return nil
}

// init provisions the artifacts, finishing the progress line afterwards.
func (a *app) init(ctx context.Context) error {
	defer a.reporter.Done()
	return a.controller.Init(ctx)
}

func (a *app) chat(ctx context.Context) error {
	if err := a.init(ctx); err != nil {
		return err
	}

	in := cli.NewChatCLI(filepath.Join(a.paths.Dir, cli.HistoryFileName))
	defer func() {
		if err := in.Close(); err != nil {
			slog.Warn("Failed to save chat history", "error", err)
		}
	}()

	repl := cli.NewREPL(a.controller, in, os.Stdout, a.prov.Status, slog.Default())
	return repl.Run(ctx)
}

// applyOverrides applies the environment and the -model flag to cfg.
func (a *app) applyOverrides(cfg *config.Config) {
	cfg.ApplyEnv()
	if a.model != "" {
		cfg.Model = a.model
	}
}

// decoderOptions merges the configured options with -opt flags, flags winning.
func (a *app) decoderOptions(cfg *config.Config) backend.DecoderOptions {
	merged := backend.DecoderOptions{}
	maps.Copy(merged, cfg.DecoderOptions)
	maps.Copy(merged, a.opts)

	return merged
}

// onReload applies new decoder options to the next session.
func (a *app) onReload(cfg *config.Config, err error) {
	if err != nil {
		slog.Error("Failed to reload config", "error", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.controller == nil {
		return
	}

	a.applyOverrides(cfg)
	if cfg.Model != a.cfg.Model || cfg.StorageDir() != a.cfg.StorageDir() {
		slog.Warn("Model and storage changes apply after restarting nomicchat")
	}

	a.controller.SetDecoderOptions(a.decoderOptions(cfg))
	slog.Info("Decoder options updated, type /restart to apply", "options", a.controller.DecoderOptions())
}
