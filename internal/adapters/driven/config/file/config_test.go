package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	content := `
batch_size = 50
workers = 2
cooldown_ms = 500
page_size = 25
data_dir = "/var/lib/syncgraph"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 500, cfg.CooldownMS)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "/var/lib/syncgraph", cfg.DataDir)
	assert.Equal(t, 500*time.Millisecond, cfg.Cooldown())
}

func TestLoad_FillsUnsetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = 8\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultCooldownMS, cfg.CooldownMS)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
}

func TestLoad_RejectsNonPositiveValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = -1\nbatch_size = 0\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size = [not toml"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")

	want := Config{
		BatchSize:  10,
		Workers:    1,
		CooldownMS: 100,
		PageSize:   20,
		DataDir:    "/tmp/data",
	}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
