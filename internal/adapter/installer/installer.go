// Package installer downloads release assets and positions the
// language-server binary. A download never lands at the final path
// directly: assets stream to a temporary file, extraction happens in a
// temporary directory, and the result is renamed into place only after
// the executable bit is set.
package installer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/quill-lang/quillup/internal/adapter/platform"
	"github.com/quill-lang/quillup/internal/domain"
)

// BinaryInstaller implements the Installer and Prober ports against the
// local filesystem. Install sequences are a critical section per target
// path; the orchestrator serializes calls.
type BinaryInstaller struct {
	paths   *platform.Paths
	client  *http.Client
	logger  domain.Logger
	goos    string
	binPath string // final binary path; overridable by user config
	verify  func(ctx context.Context, binPath string) (string, error)
}

// Option configures a BinaryInstaller.
type Option func(*BinaryInstaller)

// WithHTTPClient overrides the download client. Used by tests.
func WithHTTPClient(c *http.Client) Option {
	return func(b *BinaryInstaller) { b.client = c }
}

// WithBinaryPath overrides the final binary path (custom_binary_path in
// user config).
func WithBinaryPath(p string) Option {
	return func(b *BinaryInstaller) {
		if p != "" {
			b.binPath = p
		}
	}
}

// WithVerify overrides the post-install verification probe. Used by tests.
func WithVerify(fn func(ctx context.Context, binPath string) (string, error)) Option {
	return func(b *BinaryInstaller) { b.verify = fn }
}

// New creates a BinaryInstaller rooted at the given paths.
func New(paths *platform.Paths, logger domain.Logger, opts ...Option) *BinaryInstaller {
	b := &BinaryInstaller{
		paths:   paths,
		client:  &http.Client{},
		logger:  logger,
		goos:    runtime.GOOS,
		binPath: paths.ServerBinPath(),
		verify:  probeVersion,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// BinPath returns the final path of the server binary.
func (b *BinaryInstaller) BinPath() string { return b.binPath }

// InstallFromAsset downloads, extracts, and positions the server binary.
// Returns the installed binary path.
func (b *BinaryInstaller) InstallFromAsset(ctx context.Context, asset domain.Asset, isUpdate bool) (string, error) {
	verb := "installing"
	if isUpdate {
		verb = "updating"
	}
	b.logger.Info(verb+" language server", "asset", asset.Name)

	serverDir := b.paths.ServerDir()
	parent := filepath.Dir(serverDir)

	// Best-effort cleanup of the previous install and any stray binary.
	if err := os.RemoveAll(serverDir); err != nil {
		b.logger.Warn("could not remove previous install", "dir", serverDir, "err", err)
	}
	if err := os.Remove(b.binPath); err != nil && !os.IsNotExist(err) {
		b.logger.Warn("could not remove stray binary", "path", b.binPath, "err", err)
	}

	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("create install dir: %w", err)
	}

	archive, err := b.download(ctx, asset, parent)
	if err != nil {
		return "", err
	}
	defer os.Remove(archive)

	tmpDir, err := os.MkdirTemp(parent, ".extract-*")
	if err != nil {
		return "", fmt.Errorf("create extract dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := extract(asset.Name, archive, tmpDir); err != nil {
		return "", err
	}

	exe, err := locateBinary(tmpDir, b.paths.ExeName())
	if err != nil {
		return "", err
	}

	// Flatten so the binary sits at the root of the install dir.
	if exe != filepath.Join(tmpDir, b.paths.ExeName()) {
		if err := os.Rename(exe, filepath.Join(tmpDir, b.paths.ExeName())); err != nil {
			return "", fmt.Errorf("position binary: %w", err)
		}
	}

	if b.goos != "windows" {
		if err := os.Chmod(filepath.Join(tmpDir, b.paths.ExeName()), 0o755); err != nil {
			return "", fmt.Errorf("chmod binary: %v: %w", err, domain.ErrPermission)
		}
	}

	if err := os.Rename(tmpDir, serverDir); err != nil {
		return "", fmt.Errorf("move install into place: %w", err)
	}

	binPath := filepath.Join(serverDir, b.paths.ExeName())
	if b.binPath != b.paths.ServerBinPath() {
		// User configured a custom final path: copy the binary there too.
		if err := copyFile(binPath, b.binPath); err != nil {
			return "", fmt.Errorf("copy to configured path: %w", err)
		}
		binPath = b.binPath
	}

	// The symlink is a convenience; a failure leaves the binary fully
	// usable by absolute path.
	if err := Link(binPath, b.paths.LinkPath()); err != nil {
		b.logger.Warn("could not create command symlink",
			"err", err,
			"hint", fmt.Sprintf("run: ln -s %s %s", binPath, b.paths.LinkPath()))
	}

	ver, err := b.verify(ctx, binPath)
	if err != nil {
		return "", fmt.Errorf("installed binary failed to run: %w", err)
	}
	b.logger.Info("language server installed", "path", binPath, "version", ver)
	return binPath, nil
}

// download streams the asset to a temporary file in dir and returns its path.
func (b *BinaryInstaller) download(ctx context.Context, asset domain.Asset, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.DownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	b.logger.Info("downloading", "url", asset.DownloadURL)
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %v: %w", asset.Name, err, domain.ErrDownload)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: HTTP %d: %w", asset.Name, resp.StatusCode, domain.ErrDownload)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %v: %w", asset.Name, copyErr, domain.ErrDownload)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", closeErr)
	}
	return tmpPath, nil
}

// Probe derives the installed state fresh from the filesystem and the
// binary's own version report.
func (b *BinaryInstaller) Probe(ctx context.Context) domain.InstallState {
	info, err := os.Stat(b.binPath)
	if err != nil || info.IsDir() {
		return domain.InstallState{}
	}

	ver, err := b.verify(ctx, b.binPath)
	if err != nil {
		// Present but unresponsive; version stays unknown, which the
		// orchestrator treats as stale.
		return domain.InstallState{Present: true, Path: b.binPath}
	}
	return domain.InstallState{Present: true, Path: b.binPath, Version: ver}
}

// Clean removes the install directory, the configured binary, and the
// command symlink.
func (b *BinaryInstaller) Clean() error {
	if err := os.RemoveAll(b.paths.ServerDir()); err != nil {
		return fmt.Errorf("remove install dir: %w", err)
	}
	if err := os.Remove(b.binPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove binary: %w", err)
	}
	if err := os.Remove(b.paths.LinkPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove symlink: %w", err)
	}
	return nil
}

// Link creates (or replaces) the bare-command symlink pointing at binPath.
func Link(binPath, linkPath string) error {
	if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
		return fmt.Errorf("create link dir: %v: %w", err, domain.ErrPermission)
	}
	if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old link: %v: %w", err, domain.ErrPermission)
	}
	if err := os.Symlink(binPath, linkPath); err != nil {
		return fmt.Errorf("symlink: %v: %w", err, domain.ErrPermission)
	}
	return nil
}

// locateBinary walks an extracted tree for the named executable. Archives
// sometimes carry a top-level directory, so the search is recursive.
func locateBinary(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan extracted files: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("archive does not contain %s: %w", name, domain.ErrExtraction)
	}
	return found, nil
}

// probeVersion runs "<bin> --version" and returns the first output line.
func probeVersion(ctx context.Context, binPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, binPath, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("run %s --version: %w", binPath, err)
	}

	sc := bufio.NewScanner(strings.NewReader(string(out)))
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	return "", nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
