package domain

import (
	"context"
	"io"
)

// ReleaseResolver picks the target release and platform asset for a channel.
type ReleaseResolver interface {
	// ResolveStable returns the newest non-draft, non-prerelease,
	// non-weekly release with a platform-matched asset.
	ResolveStable(ctx context.Context) (Release, Asset, error)
	// ResolveLatest returns the provider's "latest" release with a
	// platform-matched asset. Used by the nightly channel.
	ResolveLatest(ctx context.Context) (Release, Asset, error)
}

// Installer downloads an asset, extracts it, and positions the binary.
// The whole sequence is a critical section per target path; callers must
// serialize concurrent installs.
type Installer interface {
	InstallFromAsset(ctx context.Context, asset Asset, isUpdate bool) (binPath string, err error)
}

// Builder produces the server binary from a local source tree.
type Builder interface {
	BuildFromPath(ctx context.Context, srcPath string) (binPath string, err error)
}

// Prober reports the installed state of the language-server binary.
// State is derived fresh on every call, never cached.
type Prober interface {
	Probe(ctx context.Context) InstallState
	// Clean removes any existing install. Used by force-clean-install.
	Clean() error
}

// SelfUpdater invokes the installed binary's own update subcommand and
// returns the human-readable tail of its output.
type SelfUpdater interface {
	SelfUpdate(ctx context.Context, binPath string) (output string, err error)
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(title, detail string) (bool, error)
}

// ServerRunner starts the language-server subprocess. Start returns the
// child's stdio as a ReadWriteCloser carrying the wire protocol, a wait
// function that blocks until the process exits, and a stop function that
// terminates the process group.
type ServerRunner interface {
	Start(ctx context.Context, binPath string) (rwc io.ReadWriteCloser, wait func() error, stop func(), err error)
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
