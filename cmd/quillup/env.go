package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/quill-lang/quillup/internal/adapter/builder"
	"github.com/quill-lang/quillup/internal/adapter/installer"
	"github.com/quill-lang/quillup/internal/adapter/logger"
	"github.com/quill-lang/quillup/internal/adapter/lsclient"
	"github.com/quill-lang/quillup/internal/adapter/platform"
	"github.com/quill-lang/quillup/internal/adapter/prompt"
	"github.com/quill-lang/quillup/internal/adapter/release"
	"github.com/quill-lang/quillup/internal/adapter/toolchain"
	"github.com/quill-lang/quillup/internal/adapter/version"
	"github.com/quill-lang/quillup/internal/app"
	"github.com/quill-lang/quillup/internal/config"
	"github.com/quill-lang/quillup/internal/domain"
)

// env holds the wired application for one command invocation.
type env struct {
	cfg      *config.Config
	cfgPath  string
	log      domain.Logger
	paths    *platform.Paths
	compiler *toolchain.Compiler
	prober   domain.Prober
	orch     *app.Orchestrator
}

// newEnv loads configuration and constructs the adapter graph.
func newEnv() (*env, error) {
	log := logger.NewStderr(flagVerbose)

	paths, err := platform.New()
	if err != nil {
		return nil, err
	}

	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = paths.ConfigPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	inst := installer.New(paths, log, installer.WithBinaryPath(cfg.Server.CustomBinaryPath))
	orch := app.NewOrchestrator(
		release.NewResolver(),
		inst,
		builder.New(paths, cfg.Compiler.Path, log),
		inst,
		toolchain.NewUpdater(log),
		prompt.New(),
		log,
	)

	return &env{
		cfg:      cfg,
		cfgPath:  cfgPath,
		log:      log,
		paths:    paths,
		compiler: toolchain.NewCompiler(cfg.Compiler.Path, log),
		prober:   inst,
		orch:     orch,
	}, nil
}

// serverManager is the lifecycle surface the supervision loop drives.
type serverManager interface {
	Start(ctx context.Context, opts app.AcquireOptions) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context, opts app.AcquireOptions) error
}

// serve supervises the language server until the context is cancelled,
// reloading configuration on file changes and restarting on SIGHUP.
func (e *env) serve(ctx context.Context) error {
	store := config.NewStore(e.cfg)

	mgr := app.NewLifecycleManager(
		lsclient.NewProcessRunner(e.log),
		e.orch,
		func(ctx context.Context, rwc io.ReadWriteCloser) (app.ProtoConn, error) {
			return lsclient.Connect(ctx, rwc, "", e.log)
		},
		prompt.New(),
		e.log,
	)

	store.OnChange(func(old, updated *config.Config) {
		mgr.ApplyConfig(ctx, old, updated)
	})

	watcher, err := config.NewWatcher(e.cfgPath, func() {
		cfg, err := config.Load(e.cfgPath)
		if err != nil {
			e.log.Error("config reload failed", "err", err)
			return
		}
		store.Swap(cfg)
	}, e.log)
	if err != nil {
		// No config file to watch is fine; the server still runs.
		e.log.Warn("config watching disabled", "err", err)
	} else {
		defer watcher.Close()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	return runServer(ctx, mgr, store, hup, e.log)
}

// runServer is the supervision loop of serve. A failed initial start
// leaves the supervisor alive with the feature degraded; a config change
// or a SIGHUP can bring the server up later.
func runServer(ctx context.Context, mgr serverManager, store *config.Store, hup <-chan os.Signal, log domain.Logger) error {
	cfg := store.Get()
	if cfg.Server.Enabled {
		if err := mgr.Start(ctx, app.OptionsFromConfig(cfg)); err != nil {
			if errors.Is(err, domain.ErrDeclined) {
				log.Info("installation declined, language server unavailable until config changes")
			} else {
				log.Error("language server failed to start, supervising degraded", "err", err)
			}
		}
	} else {
		log.Info("language server disabled in config, waiting for changes")
	}

	for {
		select {
		case <-ctx.Done():
			return mgr.Stop(context.WithoutCancel(ctx))

		case <-hup:
			log.Info("restart requested")
			if err := mgr.Restart(ctx, app.OptionsFromConfig(store.Get())); err != nil && !errors.Is(err, domain.ErrDeclined) {
				log.Error("restart failed", "err", err)
			}
		}
	}
}

// status reports the installed state against the stable-channel target
// without changing anything.
func (e *env) status(ctx context.Context) error {
	st := e.prober.Probe(ctx)
	if !st.Present {
		fmt.Println("language server: not installed")
	} else if st.Version == "" {
		fmt.Printf("language server: installed at %s (version unknown)\n", st.Path)
	} else {
		fmt.Printf("language server: %s\n", st.Version)
	}

	rel, _, err := release.NewResolver().ResolveStable(ctx)
	if err != nil {
		return fmt.Errorf("resolve stable target: %w", err)
	}
	fmt.Printf("stable target:   %s\n", rel.TagName)

	if st.Present && version.IsUpToDate(st.Version, rel.TagName) {
		fmt.Println("status:          up to date")
	} else {
		fmt.Println("status:          reconciliation needed")
	}
	return nil
}
