package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quill-lang/quillup/internal/domain"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such-file.toml"))
	require.NoError(t, err)

	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, domain.ChannelStable, cfg.Server.ChannelValue())
	assert.Equal(t, "quill", cfg.Compiler.Path)
}

func TestLoad_ParsesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quillup.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
enabled = false
channel = "nightly"
custom_source_path = "/home/dev/quill-ls"
force_clean_install = true

[compiler]
path = "/opt/quill/bin/quill"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Server.Enabled)
	assert.Equal(t, domain.ChannelNightly, cfg.Server.ChannelValue())
	assert.Equal(t, "/home/dev/quill-ls", cfg.Server.CustomSourcePath)
	assert.True(t, cfg.Server.ForceCleanInstall)
	assert.Equal(t, "/opt/quill/bin/quill", cfg.Compiler.Path)
}

func TestLoad_PartialFileKeepsRemainingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quillup.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nchannel = \"custom\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, domain.ChannelCustom, cfg.Server.ChannelValue())
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "quill", cfg.Compiler.Path)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quillup.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nenabled ="), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestStore_SwapNotifiesListeners(t *testing.T) {
	initial := Default()
	s := NewStore(initial)

	var gotOld, gotNew *Config
	s.OnChange(func(old, updated *Config) {
		gotOld, gotNew = old, updated
	})

	updated := Default()
	updated.Server.Enabled = false
	prev := s.Swap(updated)

	assert.Same(t, initial, prev)
	assert.Same(t, initial, gotOld)
	assert.Same(t, updated, gotNew)
	assert.Same(t, updated, s.Get())
}
