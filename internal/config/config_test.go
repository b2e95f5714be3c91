package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxelcore.yaml")
	data := []byte(`
memory:
  chunk_capacity: 128
  initial_bit_width: 40
storage:
  data_path: /tmp/world
  use_zstd_compression: false
generator:
  seed: 77
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Memory.GetChunkCapacity())
	assert.Equal(t, 32, cfg.Memory.GetInitialBitWidth(), "Ширина ограничена 32 битами")
	assert.Equal(t, "/tmp/world", cfg.Storage.GetDataPath())
	assert.False(t, cfg.Storage.GetUseZstd())
	assert.Equal(t, int64(77), cfg.Generator.GetSeed())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VOXELCORE_CONFIG", "")
	t.Setenv("VOXELCORE_CHUNK_CAPACITY", "")
	t.Setenv("VOXELCORE_SEA_LEVEL", "")
	t.Setenv("VOXELCORE_INITIAL_BIT_WIDTH", "")
	t.Setenv("VOXELCORE_METRICS_ADDR", "")
	t.Setenv("VOXELCORE_USE_ZSTD", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 4096, cfg.Memory.GetChunkCapacity())
	assert.Equal(t, 4, cfg.Memory.GetInitialBitWidth())
	assert.Equal(t, 32, cfg.Generator.GetSeaLevel())
	assert.True(t, cfg.Storage.GetUseZstd())
	assert.Equal(t, "", cfg.Metrics.GetAddr())
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("VOXELCORE_CHUNK_CAPACITY", "64")
	t.Setenv("VOXELCORE_METRICS_ADDR", ":2112")
	t.Setenv("VOXELCORE_USE_ZSTD", "false")

	var cfg Config
	assert.Equal(t, 64, cfg.Memory.GetChunkCapacity())
	assert.Equal(t, ":2112", cfg.Metrics.GetAddr())
	assert.False(t, cfg.Storage.GetUseZstd())

	cfg.Memory.ChunkCapacity = 10
	assert.Equal(t, 10, cfg.Memory.GetChunkCapacity(), "Конфиг важнее окружения")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
