// Package lsclient spawns the language server as a child process and
// speaks the language-server wire protocol to it over stdio.
package lsclient

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/quill-lang/quillup/internal/domain"
)

// ProcessRunner starts the language server as a child process.
type ProcessRunner struct {
	logger domain.Logger
	args   []string
}

// NewProcessRunner creates a runner. The server is launched with its
// stdio serve subcommand; extra args are appended after it.
func NewProcessRunner(logger domain.Logger, extraArgs ...string) *ProcessRunner {
	return &ProcessRunner{logger: logger, args: extraArgs}
}

// Start launches the server speaking the wire protocol on stdin/stdout.
// Server logs stay on stderr so they cannot corrupt the protocol stream.
func (r *ProcessRunner) Start(ctx context.Context, binPath string) (io.ReadWriteCloser, func() error, func(), error) {
	args := append([]string{"serve", "--stdio"}, r.args...)
	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = sysProcAttr()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pipe stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pipe stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("start language server: %w", err)
	}
	r.logger.Info("language server started", "pid", cmd.Process.Pid, "bin", binPath)

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				return fmt.Errorf("language server exited with code %d", exitErr.ExitCode())
			}
			return fmt.Errorf("language server: %w", err)
		}
		return nil
	}
	stop := func() {
		terminate(cmd)
	}
	return &stdioPipe{in: stdin, out: stdout}, wait, stop, nil
}

// stdioPipe joins the child's stdin and stdout into one ReadWriteCloser
// for the protocol codec.
type stdioPipe struct {
	in  io.WriteCloser
	out io.ReadCloser
}

func (p *stdioPipe) Read(b []byte) (int, error)  { return p.out.Read(b) }
func (p *stdioPipe) Write(b []byte) (int, error) { return p.in.Write(b) }

func (p *stdioPipe) Close() error {
	err := p.in.Close()
	if cerr := p.out.Close(); err == nil {
		err = cerr
	}
	return err
}
