// Package platform resolves filesystem locations for installs, symlinks,
// and configuration.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ServerBinary is the bare command name of the language server.
const ServerBinary = "quill-ls"

// Paths resolves install and config locations rooted at the user's
// home directory.
type Paths struct {
	homeDir string
	goos    string
}

// New creates Paths for the current user and operating system.
func New() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return &Paths{homeDir: home, goos: runtime.GOOS}, nil
}

// NewRooted creates Paths rooted at an explicit directory. Used by tests.
func NewRooted(home, goos string) *Paths {
	return &Paths{homeDir: home, goos: goos}
}

// ExeName returns the platform-qualified server binary filename.
func (p *Paths) ExeName() string {
	if p.goos == "windows" {
		return ServerBinary + ".exe"
	}
	return ServerBinary
}

// ServerDir returns the install directory for the language server
// (~/.quillup/server).
func (p *Paths) ServerDir() string {
	return filepath.Join(p.homeDir, ".quillup", "server")
}

// ServerBinPath returns the final path of the installed server binary.
func (p *Paths) ServerBinPath() string {
	return filepath.Join(p.ServerDir(), p.ExeName())
}

// LinkPath returns where the bare-command symlink/shim should live so the
// server resolves from PATH (~/.local/bin on POSIX, ~/bin on Windows).
func (p *Paths) LinkPath() string {
	if p.goos == "windows" {
		return filepath.Join(p.homeDir, "bin", p.ExeName())
	}
	return filepath.Join(p.homeDir, ".local", "bin", p.ExeName())
}

// ConfigPath returns the config file location
// (~/.config/quillup/config.toml, respecting XDG_CONFIG_HOME).
func (p *Paths) ConfigPath() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "quillup", "config.toml")
	}
	return filepath.Join(p.homeDir, ".config", "quillup", "config.toml")
}
