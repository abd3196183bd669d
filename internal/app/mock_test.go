package app

import (
	"context"
	"io"
	"sync"

	"github.com/quill-lang/quillup/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// mockResolver returns configured releases and records calls.
type mockResolver struct {
	stableRel   domain.Release
	stableAsset domain.Asset
	stableErr   error
	latestRel   domain.Release
	latestAsset domain.Asset
	latestErr   error

	stableCalls int
	latestCalls int
}

func (m *mockResolver) ResolveStable(ctx context.Context) (domain.Release, domain.Asset, error) {
	m.stableCalls++
	return m.stableRel, m.stableAsset, m.stableErr
}

func (m *mockResolver) ResolveLatest(ctx context.Context) (domain.Release, domain.Asset, error) {
	m.latestCalls++
	return m.latestRel, m.latestAsset, m.latestErr
}

// mockInstaller records InstallFromAsset calls.
type mockInstaller struct {
	binPath   string
	err       error
	onInstall func(asset domain.Asset, isUpdate bool)

	calls      int
	lastAsset  domain.Asset
	lastUpdate bool
}

func (m *mockInstaller) InstallFromAsset(ctx context.Context, asset domain.Asset, isUpdate bool) (string, error) {
	m.calls++
	m.lastAsset = asset
	m.lastUpdate = isUpdate
	if m.err != nil {
		return "", m.err
	}
	if m.onInstall != nil {
		m.onInstall(asset, isUpdate)
	}
	return m.binPath, nil
}

// mockBuilder records BuildFromPath calls.
type mockBuilder struct {
	binPath string
	err     error

	calls    int
	lastPath string
}

func (m *mockBuilder) BuildFromPath(ctx context.Context, srcPath string) (string, error) {
	m.calls++
	m.lastPath = srcPath
	if m.err != nil {
		return "", m.err
	}
	return m.binPath, nil
}

// mockProber simulates installed state; Clean flips it to absent.
type mockProber struct {
	present  bool
	path     string
	version  string
	cleanErr error

	probeCalls int
	cleanCalls int
}

func (m *mockProber) Probe(ctx context.Context) domain.InstallState {
	m.probeCalls++
	if !m.present {
		return domain.InstallState{}
	}
	return domain.InstallState{Present: true, Path: m.path, Version: m.version}
}

func (m *mockProber) Clean() error {
	m.cleanCalls++
	if m.cleanErr != nil {
		return m.cleanErr
	}
	m.present = false
	return nil
}

// mockUpdater records self-update calls.
type mockUpdater struct {
	output string
	err    error

	calls   int
	lastBin string
}

func (m *mockUpdater) SelfUpdate(ctx context.Context, binPath string) (string, error) {
	m.calls++
	m.lastBin = binPath
	return m.output, m.err
}

// mockPrompter returns a fixed answer.
type mockPrompter struct {
	answer bool
	err    error

	calls  int
	titles []string
}

func (m *mockPrompter) Confirm(title, detail string) (bool, error) {
	m.calls++
	m.titles = append(m.titles, title)
	return m.answer, m.err
}

// mockRunner simulates the server subprocess; stop makes wait return.
// Each Start opens a fresh session so restarts get their own exit channel.
type mockRunner struct {
	startErr error

	mu        sync.Mutex
	calls     int
	lastBin   string
	stopCount int
	exit      chan error
	exitOnce  *sync.Once
}

func newMockRunner() *mockRunner {
	return &mockRunner{}
}

func (m *mockRunner) Start(ctx context.Context, binPath string) (io.ReadWriteCloser, func() error, func(), error) {
	m.mu.Lock()
	m.calls++
	m.lastBin = binPath
	if m.startErr != nil {
		m.mu.Unlock()
		return nil, nil, nil, m.startErr
	}
	exit := make(chan error, 1)
	once := new(sync.Once)
	m.exit = exit
	m.exitOnce = once
	m.mu.Unlock()

	wait := func() error { return <-exit }
	stop := func() {
		m.mu.Lock()
		m.stopCount++
		m.mu.Unlock()
		once.Do(func() { exit <- nil })
	}
	return nopRWC{}, wait, stop, nil
}

// exitNow simulates the current subprocess dying on its own.
func (m *mockRunner) exitNow(err error) {
	m.mu.Lock()
	once, exit := m.exitOnce, m.exit
	m.mu.Unlock()
	if once != nil {
		once.Do(func() { exit <- err })
	}
}

type nopRWC struct{}

func (nopRWC) Read(p []byte) (int, error)  { return 0, io.EOF }
func (nopRWC) Write(p []byte) (int, error) { return len(p), nil }
func (nopRWC) Close() error                { return nil }

// mockConn is a protocol connection that records shutdowns.
type mockConn struct {
	mu            sync.Mutex
	shutdownCalls int
	disconnected  chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{disconnected: make(chan struct{})}
}

func (m *mockConn) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownCalls++
	return nil
}

func (m *mockConn) Disconnected() <-chan struct{} { return m.disconnected }
