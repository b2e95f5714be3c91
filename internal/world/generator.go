package world

import (
	"math"

	"github.com/annel0/voxelcore/internal/util"
	"github.com/annel0/voxelcore/internal/vec"
)

// WorldGenerator заполняет чанки ландшафтом по карте высот из шума Перлина
type WorldGenerator struct {
	Seed       int64   // Сид для генерации шума
	SeaLevel   int     // Уровень моря (мировая Y)
	NoiseScale float64 // Масштаб шума (сглаженность ландшафта)
	Amplitude  int     // Разброс высот вокруг уровня моря
	DirtDepth  int     // Толщина слоя земли под поверхностью

	noise *util.HeightNoise
}

// NewWorldGenerator создаёт новый генератор мира
func NewWorldGenerator(seed int64, seaLevel int) *WorldGenerator {
	return &WorldGenerator{
		Seed:       seed,
		SeaLevel:   seaLevel,
		NoiseScale: 0.02,
		Amplitude:  24,
		DirtDepth:  3,
		noise:      util.NewHeightNoise(seed),
	}
}

// HeightAt возвращает высоту поверхности в колонке
func (wg *WorldGenerator) HeightAt(col vec.Vec2) int {
	n := wg.noise.Noise2D(float64(col.X)*wg.NoiseScale, float64(col.Y)*wg.NoiseScale)
	// n в [0,1], переводим в [-Amplitude, Amplitude]
	offset := (n*2 - 1) * float64(wg.Amplitude)
	return wg.SeaLevel + int(math.Round(offset))
}

// BlockAt возвращает блок для мировой высоты y при высоте поверхности height
func (wg *WorldGenerator) BlockAt(y, height int) BlockID {
	switch {
	case y > height:
		if y <= wg.SeaLevel {
			return WaterBlockID
		}
		return AirBlockID
	case y == height:
		if height <= wg.SeaLevel {
			return SandBlockID
		}
		return GrassBlockID
	case y > height-wg.DirtDepth:
		return DirtBlockID
	default:
		return StoneBlockID
	}
}

// FillChunk заполняет чанк ландшафтом
func (wg *WorldGenerator) FillChunk(c *Chunk) error {
	origin := c.Coords.ChunkOrigin()

	for x := 0; x < ChunkSize; x++ {
		for z := 0; z < ChunkSize; z++ {
			height := wg.HeightAt(vec.Vec2{X: origin.X + x, Y: origin.Z + z})

			for y := 0; y < ChunkSize; y++ {
				id := wg.BlockAt(origin.Y+y, height)
				if id.IsAir() {
					continue
				}
				if err := c.SetBlock(vec.Vec3{X: x, Y: y, Z: z}, id); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// GenerateChunk генерирует чанк по его координатам прямо в хранилище
func (wg *WorldGenerator) GenerateChunk(store *ChunkStore, coords vec.Vec3) (*Chunk, error) {
	var generated *Chunk
	err := store.Update(coords, func(c *Chunk) error {
		generated = c
		return wg.FillChunk(c)
	})
	if err != nil {
		return nil, err
	}
	return generated, nil
}
