// Package config loads quillup's TOML configuration and watches it for
// changes so a running supervisor can react to edits.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/quill-lang/quillup/internal/domain"
)

// Server configures language-server acquisition and supervision.
type Server struct {
	Enabled           bool   `toml:"enabled"`
	Channel           string `toml:"channel"`
	CustomBinaryPath  string `toml:"custom_binary_path"`
	CustomSourcePath  string `toml:"custom_source_path"`
	ForceCleanInstall bool   `toml:"force_clean_install"`
}

// Compiler configures how the compiler binary is invoked.
type Compiler struct {
	Path string `toml:"path"`
}

// Config is the full quillup configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Compiler Compiler `toml:"compiler"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server:   Server{Enabled: true, Channel: string(domain.ChannelStable)},
		Compiler: Compiler{Path: "quill"},
	}
}

// ChannelValue returns the configured release channel. Unrecognized values
// pass through; the orchestrator treats them as the custom channel.
func (s Server) ChannelValue() domain.Channel {
	return domain.Channel(s.Channel)
}

// Load reads the config file at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
