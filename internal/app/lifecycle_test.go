package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-lang/quillup/internal/config"
	"github.com/quill-lang/quillup/internal/domain"
)

type lifecycleFixture struct {
	*fixture
	runner *mockRunner

	mu    sync.Mutex
	conns []*mockConn

	mgr *LifecycleManager
}

func newLifecycleFixture() *lifecycleFixture {
	f := newFixture()
	f.prober.present = true
	f.prober.path = "/srv/quill-ls"
	f.prober.version = "1.2.3"

	lf := &lifecycleFixture{fixture: f, runner: newMockRunner()}
	dial := func(ctx context.Context, rwc io.ReadWriteCloser) (ProtoConn, error) {
		conn := newMockConn()
		lf.mu.Lock()
		lf.conns = append(lf.conns, conn)
		lf.mu.Unlock()
		return conn, nil
	}
	lf.mgr = NewLifecycleManager(lf.runner, f.orch, dial, f.prompter, nopLogger{})
	return lf
}

func (lf *lifecycleFixture) conn(i int) *mockConn {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.conns[i]
}

func (lf *lifecycleFixture) connCount() int {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return len(lf.conns)
}

func stableOpts() AcquireOptions {
	return AcquireOptions{Channel: domain.ChannelStable}
}

func TestLifecycle_StartStop(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()

	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))
	assert.Equal(t, domain.ConnRunning, lf.mgr.State())
	assert.Equal(t, 1, lf.runner.calls)
	assert.Equal(t, "/srv/quill-ls", lf.runner.lastBin)

	require.NoError(t, lf.mgr.Stop(ctx))
	assert.Equal(t, domain.ConnStopped, lf.mgr.State())
	assert.Equal(t, 1, lf.conn(0).shutdownCalls)
	assert.Equal(t, 1, lf.runner.stopCount)
}

func TestLifecycle_StopWhileStoppedIsNoop(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()

	require.NoError(t, lf.mgr.Stop(ctx))
	assert.Equal(t, domain.ConnStopped, lf.mgr.State())

	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))
	require.NoError(t, lf.mgr.Stop(ctx))
	require.NoError(t, lf.mgr.Stop(ctx))

	assert.Equal(t, 1, lf.conn(0).shutdownCalls)
	assert.Equal(t, 1, lf.runner.stopCount)
}

func TestLifecycle_StartWhileRunningRejected(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()

	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))
	err := lf.mgr.Start(ctx, stableOpts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running")

	// The rejected start did not spawn a second process.
	assert.Equal(t, 1, lf.runner.calls)
}

func TestLifecycle_StartDeclinedLeavesStopped(t *testing.T) {
	lf := newLifecycleFixture()
	lf.prober.present = false
	lf.prompter.answer = false

	err := lf.mgr.Start(context.Background(), stableOpts())
	require.ErrorIs(t, err, domain.ErrDeclined)
	assert.Equal(t, domain.ConnStopped, lf.mgr.State())
	assert.Zero(t, lf.runner.calls)
}

func TestLifecycle_SpawnFailureLeavesStopped(t *testing.T) {
	lf := newLifecycleFixture()
	lf.runner.startErr = errors.New("exec format error")

	err := lf.mgr.Start(context.Background(), stableOpts())
	require.Error(t, err)
	assert.Equal(t, domain.ConnStopped, lf.mgr.State())
}

func TestLifecycle_UnexpectedExitMarksStopped(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()

	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))
	lf.runner.exitNow(errors.New("signal: killed"))

	assert.Eventually(t, func() bool {
		return lf.mgr.State() == domain.ConnStopped
	}, time.Second, 5*time.Millisecond)

	// The death was already recorded; Stop stays a no-op.
	require.NoError(t, lf.mgr.Stop(ctx))
	assert.Equal(t, 0, lf.conn(0).shutdownCalls)
}

func TestLifecycle_RestartReplacesProcess(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()

	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))
	require.NoError(t, lf.mgr.Restart(ctx, stableOpts()))

	assert.Equal(t, domain.ConnRunning, lf.mgr.State())
	assert.Equal(t, 2, lf.runner.calls)
	assert.Equal(t, 2, lf.connCount())
	assert.Equal(t, 1, lf.conn(0).shutdownCalls)

	// The first process's monitor was orphaned by the restart and must
	// not clobber the replacement's state.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, domain.ConnRunning, lf.mgr.State())
}

func TestLifecycle_RestartFromStoppedStillStarts(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()

	require.NoError(t, lf.mgr.Restart(ctx, stableOpts()))
	assert.Equal(t, domain.ConnRunning, lf.mgr.State())
	assert.Equal(t, 1, lf.runner.calls)
}

func enabledConfig(enabled bool) *config.Config {
	cfg := config.Default()
	cfg.Server.Enabled = enabled
	return cfg
}

func TestApplyConfig_EnableStarts(t *testing.T) {
	lf := newLifecycleFixture()

	lf.mgr.ApplyConfig(context.Background(), enabledConfig(false), enabledConfig(true))
	assert.Equal(t, domain.ConnRunning, lf.mgr.State())
}

func TestApplyConfig_DisableStops(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()
	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))

	lf.mgr.ApplyConfig(ctx, enabledConfig(true), enabledConfig(false))
	assert.Equal(t, domain.ConnStopped, lf.mgr.State())
	assert.Equal(t, 1, lf.conn(0).shutdownCalls)
}

func TestApplyConfig_ServerChangeAcceptedRestarts(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()
	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))

	updated := enabledConfig(true)
	updated.Server.Channel = string(domain.ChannelNightly)
	lf.mgr.ApplyConfig(ctx, enabledConfig(true), updated)

	assert.Equal(t, domain.ConnRunning, lf.mgr.State())
	assert.Equal(t, 2, lf.runner.calls)
	assert.Equal(t, 1, lf.prompter.calls)
}

func TestApplyConfig_ServerChangeDeclinedKeepsRunning(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()
	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))
	lf.prompter.answer = false

	updated := enabledConfig(true)
	updated.Server.Channel = string(domain.ChannelNightly)
	lf.mgr.ApplyConfig(ctx, enabledConfig(true), updated)

	// The old process keeps running with the old settings.
	assert.Equal(t, domain.ConnRunning, lf.mgr.State())
	assert.Equal(t, 1, lf.runner.calls)
	assert.Equal(t, 0, lf.conn(0).shutdownCalls)
}

func TestApplyConfig_UnrelatedChangeIgnored(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()
	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))

	updated := enabledConfig(true)
	updated.Compiler.Path = "/opt/quill/bin/quill"
	lf.mgr.ApplyConfig(ctx, enabledConfig(true), updated)

	assert.Equal(t, 1, lf.runner.calls)
	assert.Zero(t, lf.prompter.calls)
}

func TestApplyConfig_EnableWhileRunningIgnored(t *testing.T) {
	lf := newLifecycleFixture()
	ctx := context.Background()
	require.NoError(t, lf.mgr.Start(ctx, stableOpts()))

	lf.mgr.ApplyConfig(ctx, enabledConfig(false), enabledConfig(true))
	assert.Equal(t, 1, lf.runner.calls)
}
