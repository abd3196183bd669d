package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/quill-lang/quillup/internal/config"
	"github.com/quill-lang/quillup/internal/domain"
)

// ProtoConn is the client-side protocol connection surface the lifecycle
// manager drives.
type ProtoConn interface {
	Shutdown(ctx context.Context) error
	Disconnected() <-chan struct{}
}

// DialFunc wraps a spawned server's stdio in an initialized ProtoConn.
type DialFunc func(ctx context.Context, rwc io.ReadWriteCloser) (ProtoConn, error)

// LifecycleManager owns the single language-server subprocess of a
// session. All state transitions go through Start/Stop/Restart; operations
// are serialized so two starts can never race for the binary path.
type LifecycleManager struct {
	runner   domain.ServerRunner
	orch     *Orchestrator
	dial     DialFunc
	prompter domain.Prompter
	logger   domain.Logger

	opMu sync.Mutex // serializes Start/Stop/Restart end to end

	mu       sync.Mutex
	state    domain.ConnState
	gen      int // invalidates the monitor of a replaced subprocess
	conn     ProtoConn
	stopProc func()
	cancel   context.CancelFunc
}

// NewLifecycleManager creates a stopped manager.
func NewLifecycleManager(
	runner domain.ServerRunner,
	orch *Orchestrator,
	dial DialFunc,
	prompter domain.Prompter,
	logger domain.Logger,
) *LifecycleManager {
	return &LifecycleManager{
		runner:   runner,
		orch:     orch,
		dial:     dial,
		prompter: prompter,
		logger:   logger,
		state:    domain.ConnStopped,
	}
}

// State returns the current lifecycle state.
func (m *LifecycleManager) State() domain.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start resolves the server binary (acquiring it if absent), spawns the
// subprocess, and performs the protocol handshake. Valid only from
// Stopped; a concurrent Start is rejected rather than interleaved.
func (m *LifecycleManager) Start(ctx context.Context, opts AcquireOptions) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.startLocked(ctx, opts)
}

func (m *LifecycleManager) startLocked(ctx context.Context, opts AcquireOptions) error {
	m.mu.Lock()
	if m.state != domain.ConnStopped {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("cannot start language server while %s", state)
	}
	m.state = domain.ConnStarting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	bin, err := m.orch.EnsureInstalled(ctx, opts)
	if err != nil {
		m.setStopped()
		if errors.Is(err, domain.ErrDeclined) {
			m.logger.Info("language server unavailable: installation declined")
			return err
		}
		return fmt.Errorf("resolve server binary: %w", err)
	}

	// The subprocess outlives the Start call; its context is cancelled by
	// Stop, not by the caller.
	runCtx, cancel := context.WithCancel(context.Background())
	rwc, wait, stopProc, err := m.runner.Start(runCtx, bin)
	if err != nil {
		cancel()
		m.setStopped()
		return fmt.Errorf("spawn language server: %w", err)
	}

	conn, err := m.dial(runCtx, rwc)
	if err != nil {
		stopProc()
		_ = wait()
		cancel()
		m.setStopped()
		return fmt.Errorf("connect to language server: %w", err)
	}

	m.mu.Lock()
	m.state = domain.ConnRunning
	m.conn = conn
	m.stopProc = stopProc
	m.cancel = cancel
	m.mu.Unlock()

	go m.monitor(gen, conn, wait)
	return nil
}

// monitor watches a running server and records an unexpected exit. A
// generation check keeps a stale monitor from clobbering the state of a
// replacement process.
func (m *LifecycleManager) monitor(gen int, conn ProtoConn, wait func() error) {
	exited := make(chan error, 1)
	go func() { exited <- wait() }()

	var cause error
	select {
	case cause = <-exited:
	case <-conn.Disconnected():
		cause = errors.New("connection closed by server")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.state != domain.ConnRunning {
		return // superseded by an explicit stop or restart
	}
	m.state = domain.ConnStopped
	m.conn = nil
	m.stopProc = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.logger.Error("language server stopped unexpectedly", "cause", cause)
}

// Stop terminates the running server. Calling it while already stopped
// is a no-op, not an error.
func (m *LifecycleManager) Stop(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.stopLocked(ctx)
}

func (m *LifecycleManager) stopLocked(ctx context.Context) error {
	m.mu.Lock()
	if m.state != domain.ConnRunning {
		m.mu.Unlock()
		return nil
	}
	m.state = domain.ConnStopping
	m.gen++ // orphan the monitor
	conn := m.conn
	stopProc := m.stopProc
	cancel := m.cancel
	m.conn = nil
	m.stopProc = nil
	m.cancel = nil
	m.mu.Unlock()

	if conn != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 5*time.Second)
		if err := conn.Shutdown(shutdownCtx); err != nil {
			m.logger.Warn("shutdown exchange failed", "err", err)
		}
		cancelShutdown()
	}
	if stopProc != nil {
		stopProc()
	}
	if cancel != nil {
		cancel()
	}

	m.setStopped()
	m.logger.Info("language server stopped")
	return nil
}

// Restart composes stop and start. Stop-phase failures are swallowed so
// the start phase still runs; start failures are surfaced.
func (m *LifecycleManager) Restart(ctx context.Context, opts AcquireOptions) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.logger.Info("restarting language server")
	if err := m.stopLocked(ctx); err != nil {
		m.logger.Warn("stop phase of restart failed, starting anyway", "err", err)
	}
	return m.startLocked(ctx, opts)
}

// ApplyConfig reacts to a configuration change: enabling starts a stopped
// server, disabling stops a running one, and any other change under the
// server namespace prompts before restarting. Declining leaves the stale
// configuration in effect until the next explicit restart.
func (m *LifecycleManager) ApplyConfig(ctx context.Context, old, updated *config.Config) {
	opts := OptionsFromConfig(updated)

	switch {
	case !old.Server.Enabled && updated.Server.Enabled:
		if m.State() != domain.ConnStopped {
			return
		}
		if err := m.Start(ctx, opts); err != nil && !errors.Is(err, domain.ErrDeclined) {
			m.logger.Error("could not start language server", "err", err)
		}

	case old.Server.Enabled && !updated.Server.Enabled:
		if err := m.Stop(ctx); err != nil {
			m.logger.Error("could not stop language server", "err", err)
		}

	case old.Server != updated.Server:
		if m.State() != domain.ConnRunning {
			return
		}
		ok, err := m.prompter.Confirm(
			"Language server configuration changed. Restart now?",
			"declining keeps the current server running with the old settings",
		)
		if err != nil || !ok {
			m.logger.Info("restart declined, keeping previous configuration in effect")
			return
		}
		if err := m.Restart(ctx, opts); err != nil && !errors.Is(err, domain.ErrDeclined) {
			m.logger.Error("restart failed", "err", err)
		}
	}
}

func (m *LifecycleManager) setStopped() {
	m.mu.Lock()
	m.state = domain.ConnStopped
	m.mu.Unlock()
}

// OptionsFromConfig maps the server config section onto acquisition
// options.
func OptionsFromConfig(cfg *config.Config) AcquireOptions {
	return AcquireOptions{
		Channel:    cfg.Server.ChannelValue(),
		SourcePath: cfg.Server.CustomSourcePath,
		ForceClean: cfg.Server.ForceCleanInstall,
	}
}
