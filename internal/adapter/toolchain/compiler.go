// Package toolchain shells out to the Quill compiler and language server
// as opaque child processes. One-shot invocations share no state and may
// run concurrently with each other and with the supervised server.
package toolchain

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/quill-lang/quillup/internal/domain"
)

// Compiler runs one-shot compiler subcommands.
type Compiler struct {
	bin    string
	logger domain.Logger
	stdout io.Writer
	stderr io.Writer
}

// NewCompiler creates a Compiler driving the given binary (usually
// "quill" from PATH). Child output goes to this process's stdout/stderr.
func NewCompiler(bin string, logger domain.Logger) *Compiler {
	return &Compiler{bin: bin, logger: logger, stdout: os.Stdout, stderr: os.Stderr}
}

// Run compiles and executes a single source file.
func (c *Compiler) Run(ctx context.Context, file string) error {
	return c.exec(ctx, "run", file)
}

// Format rewrites a source file in place with the canonical formatting.
func (c *Compiler) Format(ctx context.Context, file string) error {
	return c.exec(ctx, "fmt", "-w", file)
}

// Build produces an optimized executable from a source file.
func (c *Compiler) Build(ctx context.Context, file string) error {
	return c.exec(ctx, "build", "--release", file)
}

// Version returns the compiler's reported version line.
func (c *Compiler) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.bin, "version").Output()
	if err != nil {
		return "", fmt.Errorf("%s version: %w", c.bin, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *Compiler) exec(ctx context.Context, args ...string) error {
	c.logger.Info("running compiler", "cmd", c.bin+" "+strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", c.bin, strings.Join(args, " "), err)
	}
	return nil
}

// Updater invokes the language server's own update subcommand. The
// nightly channel uses this instead of re-running full acquisition.
type Updater struct {
	logger domain.Logger
}

// NewUpdater creates an Updater.
func NewUpdater(logger domain.Logger) *Updater {
	return &Updater{logger: logger}
}

// SelfUpdate runs "<binPath> update --json", relays the server's status
// stream to the log, and returns the final human-readable message. A
// status event carrying an error payload fails the update.
func (u *Updater) SelfUpdate(ctx context.Context, binPath string) (string, error) {
	cmd := exec.CommandContext(ctx, binPath, "update", "--json")
	cmd.Stderr = os.Stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("pipe updater output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start updater: %w", err)
	}

	tail, evErr := u.relayStatus(out)

	if err := cmd.Wait(); err != nil {
		return tail, fmt.Errorf("language server updater: %w", err)
	}
	if evErr != nil {
		return tail, evErr
	}
	return tail, nil
}

// relayStatus consumes the update status stream and returns the last
// message plus any error event it carried.
func (u *Updater) relayStatus(r io.Reader) (string, error) {
	var tail string
	var evErr error

	sc := NewStatusScanner(bufio.NewReader(r), u.logger)
	for sc.Scan() {
		ev := sc.Event()
		if ev.Message != "" {
			tail = ev.Message
			u.logger.Info("language server update", "status", ev.Message)
		}
		if ev.Error != nil && evErr == nil {
			evErr = fmt.Errorf("updater reported error %d: %s", ev.Error.Code, ev.Error.Message)
		}
	}
	if err := sc.Err(); err != nil && evErr == nil {
		evErr = fmt.Errorf("read updater output: %w", err)
	}
	return tail, evErr
}
