package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации.
// Незаданные поля берутся из переменных окружения VOXELCORE_*, затем из
// значений по умолчанию (см. геттеры).
type Config struct {
	Memory    MemoryConfig    `yaml:"memory"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Generator GeneratorConfig `yaml:"generator"`
}

type MemoryConfig struct {
	ChunkCapacity   int `yaml:"chunk_capacity"`
	InitialBitWidth int `yaml:"initial_bit_width"`
}

type StorageConfig struct {
	DataPath string `yaml:"data_path"`
	WorldID  string `yaml:"world_id"`
	UseZstd  *bool  `yaml:"use_zstd_compression"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type GeneratorConfig struct {
	Seed     int64 `yaml:"seed"`
	SeaLevel int   `yaml:"sea_level"`
}

// GetChunkCapacity возвращает ёмкость пула чанков
func (m *MemoryConfig) GetChunkCapacity() int {
	return getIntWithEnvFallback(m.ChunkCapacity, "VOXELCORE_CHUNK_CAPACITY", 4096)
}

// GetInitialBitWidth возвращает начальную ширину упакованных массивов (1..32)
func (m *MemoryConfig) GetInitialBitWidth() int {
	width := getIntWithEnvFallback(m.InitialBitWidth, "VOXELCORE_INITIAL_BIT_WIDTH", 4)
	if width > 32 {
		return 32
	}
	return width
}

// GetDataPath возвращает каталог данных BadgerDB
func (s *StorageConfig) GetDataPath() string {
	return getStringWithEnvFallback(s.DataPath, "VOXELCORE_DATA_PATH", "data")
}

// GetWorldID возвращает идентификатор мира (пусто: сгенерировать новый)
func (s *StorageConfig) GetWorldID() string {
	return getStringWithEnvFallback(s.WorldID, "VOXELCORE_WORLD_ID", "")
}

// GetUseZstd сообщает, сжимать ли снимки чанков
func (s *StorageConfig) GetUseZstd() bool {
	if s.UseZstd != nil {
		return *s.UseZstd
	}
	if envVal := os.Getenv("VOXELCORE_USE_ZSTD"); envVal != "" {
		if v, err := strconv.ParseBool(envVal); err == nil {
			return v
		}
	}
	return true
}

// GetAddr возвращает адрес Prometheus эндпоинта (пусто: worldgen -serve слушает :9100)
func (m *MetricsConfig) GetAddr() string {
	return getStringWithEnvFallback(m.Addr, "VOXELCORE_METRICS_ADDR", "")
}

// GetSeed возвращает сид генератора
func (g *GeneratorConfig) GetSeed() int64 {
	if g.Seed != 0 {
		return g.Seed
	}
	if envVal := os.Getenv("VOXELCORE_SEED"); envVal != "" {
		if v, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return v
		}
	}
	return 12345
}

// GetSeaLevel возвращает уровень моря
func (g *GeneratorConfig) GetSeaLevel() int {
	return getIntWithEnvFallback(g.SeaLevel, "VOXELCORE_SEA_LEVEL", 32)
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultVal
}

func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать путь из ENV VOXELCORE_CONFIG; если и он
// не задан, возвращает пустую конфигурацию (работают env и дефолты).
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXELCORE_CONFIG")
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
