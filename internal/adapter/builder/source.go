// Package builder produces the language-server binary from a local
// source tree for the custom channel.
package builder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/quill-lang/quillup/internal/adapter/installer"
	"github.com/quill-lang/quillup/internal/adapter/platform"
	"github.com/quill-lang/quillup/internal/domain"
)

// SourceBuilder runs the toolchain's build command inside a source tree
// and links the resulting binary.
type SourceBuilder struct {
	paths    *platform.Paths
	logger   domain.Logger
	compiler string // compiler command used to drive the build
}

// New creates a SourceBuilder that builds with the given compiler command.
func New(paths *platform.Paths, compiler string, logger domain.Logger) *SourceBuilder {
	return &SourceBuilder{paths: paths, logger: logger, compiler: compiler}
}

// BuildFromPath validates srcPath, builds the server in place, and returns
// the path to the produced binary. Validation happens before any side
// effects so a mistyped path fails fast.
func (b *SourceBuilder) BuildFromPath(ctx context.Context, srcPath string) (string, error) {
	info, err := os.Stat(srcPath)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("source path %s: %w", srcPath, domain.ErrPathNotFound)
	}

	b.logger.Info("building language server from source", "path", srcPath)

	cmd := exec.CommandContext(ctx, b.compiler, "build", "--release", ".")
	cmd.Dir = srcPath
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s build: %v\n%s: %w", b.compiler, err, out.String(), domain.ErrBuild)
	}

	binPath := filepath.Join(srcPath, b.paths.ExeName())
	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf("build produced no %s in %s: %w", b.paths.ExeName(), srcPath, domain.ErrBuild)
	}

	// Same best-effort link step as release installs.
	if err := installer.Link(binPath, b.paths.LinkPath()); err != nil {
		b.logger.Warn("could not create command symlink",
			"err", err,
			"hint", fmt.Sprintf("run: ln -s %s %s", binPath, b.paths.LinkPath()))
	}

	b.logger.Info("language server built", "path", binPath)
	return binPath, nil
}
