// Package app holds the acquisition orchestrator and the client
// lifecycle manager, wired together from the adapter ports.
package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/quill-lang/quillup/internal/adapter/version"
	"github.com/quill-lang/quillup/internal/domain"
)

// AcquireOptions carries the configuration inputs of one acquisition run.
type AcquireOptions struct {
	Channel    domain.Channel
	SourcePath string // custom-channel source tree
	ForceClean bool   // delete any existing install before probing
	NoPrompt   bool   // explicit user command implies consent
}

// AcquireResult reports what an acquisition run did.
type AcquireResult struct {
	Decision domain.Decision
	BinPath  string
	Target   string // resolved target tag, when a release was consulted
	Output   string // self-update tail output, surfaced verbatim
}

// Orchestrator decides, per acquisition request, whether to keep, install,
// update, or build the language server. Concurrent requests for the same
// binary collapse into one run.
type Orchestrator struct {
	resolver  domain.ReleaseResolver
	installer domain.Installer
	builder   domain.Builder
	prober    domain.Prober
	updater   domain.SelfUpdater
	prompter  domain.Prompter
	logger    domain.Logger

	group singleflight.Group
}

// NewOrchestrator creates the orchestrator with all dependencies injected.
func NewOrchestrator(
	rr domain.ReleaseResolver,
	in domain.Installer,
	bd domain.Builder,
	pr domain.Prober,
	su domain.SelfUpdater,
	pm domain.Prompter,
	lg domain.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:  rr,
		installer: in,
		builder:   bd,
		prober:    pr,
		updater:   su,
		prompter:  pm,
		logger:    lg,
	}
}

// Acquire runs one reconciliation pass. Errors are logged here at the
// boundary before being returned; callers report them to the user and
// keep running — a failed acquisition leaves any prior install untouched.
// Concurrent requests for the same channel collapse into one run.
func (o *Orchestrator) Acquire(ctx context.Context, opts AcquireOptions) (AcquireResult, error) {
	if opts.Channel == "" {
		opts.Channel = domain.ChannelStable
	}

	v, err, _ := o.group.Do(string(opts.Channel), func() (any, error) {
		res, err := o.acquire(ctx, opts)
		return res, err
	})
	res, _ := v.(AcquireResult)
	if err != nil {
		o.logger.Error("acquisition failed", "channel", opts.Channel, "err", err)
	}
	return res, err
}

func (o *Orchestrator) acquire(ctx context.Context, opts AcquireOptions) (AcquireResult, error) {
	if opts.ForceClean {
		// Clean before probe: a forced reinstall must see Absent even
		// when a binary is physically present.
		o.logger.Info("force clean install requested, removing existing install")
		if err := o.prober.Clean(); err != nil {
			o.logger.Warn("clean failed, continuing", "err", err)
		}
	}

	st := o.prober.Probe(ctx)

	if !st.Present {
		if !opts.NoPrompt {
			ok, err := o.prompter.Confirm(
				"Install the Quill language server?",
				fmt.Sprintf("channel: %s", opts.Channel),
			)
			if err != nil {
				return AcquireResult{}, fmt.Errorf("consent prompt: %w", err)
			}
			if !ok {
				o.logger.Info("installation declined")
				return AcquireResult{Decision: domain.DecisionDeclined}, nil
			}
		}
		return o.installFresh(ctx, opts)
	}

	return o.reconcile(ctx, opts, st)
}

// installFresh dispatches on the channel for an absent binary.
func (o *Orchestrator) installFresh(ctx context.Context, opts AcquireOptions) (AcquireResult, error) {
	switch opts.Channel {
	case domain.ChannelStable:
		rel, asset, err := o.resolver.ResolveStable(ctx)
		if err != nil {
			return AcquireResult{}, err
		}
		bin, err := o.installer.InstallFromAsset(ctx, asset, false)
		if err != nil {
			return AcquireResult{}, err
		}
		return AcquireResult{Decision: domain.DecisionInstall, BinPath: bin, Target: rel.TagName}, nil

	case domain.ChannelNightly:
		rel, asset, err := o.resolver.ResolveLatest(ctx)
		if err != nil {
			return AcquireResult{}, err
		}
		bin, err := o.installer.InstallFromAsset(ctx, asset, false)
		if err != nil {
			return AcquireResult{}, err
		}
		return AcquireResult{Decision: domain.DecisionInstall, BinPath: bin, Target: rel.TagName}, nil

	default:
		// Custom channel, and the fallback for unrecognized values.
		bin, err := o.builder.BuildFromPath(ctx, opts.SourcePath)
		if err != nil {
			return AcquireResult{}, err
		}
		return AcquireResult{Decision: domain.DecisionBuild, BinPath: bin}, nil
	}
}

// reconcile handles a present binary: custom installs are never
// auto-updated, nightly delegates to the binary's own updater, stable
// compares canonical versions and reinstalls on mismatch.
func (o *Orchestrator) reconcile(ctx context.Context, opts AcquireOptions, st domain.InstallState) (AcquireResult, error) {
	switch opts.Channel {
	case domain.ChannelNightly:
		out, err := o.updater.SelfUpdate(ctx, st.Path)
		if err != nil {
			return AcquireResult{}, err
		}
		return AcquireResult{Decision: domain.DecisionSelfUpdate, BinPath: st.Path, Output: out}, nil

	case domain.ChannelStable:
		rel, asset, err := o.resolver.ResolveStable(ctx)
		if err != nil {
			return AcquireResult{}, err
		}
		if version.IsUpToDate(st.Version, rel.TagName) {
			o.logger.Info("language server is up to date", "version", st.Version)
			return AcquireResult{Decision: domain.DecisionSkip, BinPath: st.Path, Target: rel.TagName}, nil
		}
		bin, err := o.installer.InstallFromAsset(ctx, asset, true)
		if err != nil {
			return AcquireResult{}, err
		}
		return AcquireResult{Decision: domain.DecisionUpdate, BinPath: bin, Target: rel.TagName}, nil

	default:
		// Source-path installs are reconciled only by explicit rebuilds.
		return AcquireResult{Decision: domain.DecisionSkip, BinPath: st.Path}, nil
	}
}

// EnsureInstalled returns the binary path, acquiring it first when
// absent. Present binaries are used as-is; no update check runs here.
func (o *Orchestrator) EnsureInstalled(ctx context.Context, opts AcquireOptions) (string, error) {
	if st := o.prober.Probe(ctx); st.Present {
		return st.Path, nil
	}
	res, err := o.Acquire(ctx, opts)
	if err != nil {
		return "", err
	}
	if res.Decision == domain.DecisionDeclined {
		return "", domain.ErrDeclined
	}
	if res.BinPath == "" {
		return "", errors.New("acquisition produced no binary")
	}
	return res.BinPath, nil
}
