package world

import (
	"testing"

	"github.com/annel0/voxelcore/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCreateAndGetBlock(t *testing.T) {
	coords := vec.Vec3{X: 5, Y: -1, Z: 10}
	chunk, err := NewChunk(coords, 1)
	require.NoError(t, err)

	// Проверяем координаты
	assert.Equal(t, coords, chunk.Coords)

	// Проверяем, что блоки инициализированы как пустые
	pos := vec.Vec3{X: 3, Y: 4, Z: 15}
	blockID, err := chunk.GetBlock(pos)
	require.NoError(t, err)
	assert.Equal(t, AirBlockID, blockID, "Ожидался пустой блок")

	// Устанавливаем и проверяем блок
	require.NoError(t, chunk.SetBlock(pos, WaterBlockID))
	blockID, err = chunk.GetBlock(pos)
	require.NoError(t, err)
	assert.Equal(t, WaterBlockID, blockID)

	assert.Equal(t, 3, chunk.BitWidth(), "WaterBlockID=5 требует 3 бита")
	assert.Equal(t, 3*ChunkVolume/8, chunk.MemoryBytes())
	assert.Equal(t, 1, chunk.ChangeCounter)

	// Повторная запись того же блока не считается изменением
	require.NoError(t, chunk.SetBlock(pos, WaterBlockID))
	assert.Equal(t, 1, chunk.ChangeCounter)
}

func TestChunkAllPositionsDistinct(t *testing.T) {
	chunk, err := NewChunk(vec.Vec3{}, 12)
	require.NoError(t, err)

	id := BlockID(0)
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			for z := 0; z < ChunkSize; z++ {
				require.NoError(t, chunk.SetBlock(vec.Vec3{X: x, Y: y, Z: z}, id))
				id++
			}
		}
	}

	id = 0
	for x := 0; x < ChunkSize; x++ {
		for y := 0; y < ChunkSize; y++ {
			for z := 0; z < ChunkSize; z++ {
				got, err := chunk.GetBlock(vec.Vec3{X: x, Y: y, Z: z})
				require.NoError(t, err)
				if got != id {
					t.Fatalf("Блок (%d,%d,%d): ожидался %d, получен %d", x, y, z, id, got)
				}
				id++
			}
		}
	}
}

func TestChunkOutOfBounds(t *testing.T) {
	chunk, err := NewChunk(vec.Vec3{}, 1)
	require.NoError(t, err)

	_, err = chunk.GetBlock(vec.Vec3{X: 16})
	assert.ErrorIs(t, err, ErrOutOfChunk)
	assert.ErrorIs(t, chunk.SetBlock(vec.Vec3{Y: -1}, StoneBlockID), ErrOutOfChunk)

	_, err = NewChunk(vec.Vec3{}, 0)
	assert.Error(t, err)
}

func TestChunkMarshalRoundTrip(t *testing.T) {
	chunk, err := NewChunk(vec.Vec3{X: -3, Y: 7, Z: 1000}, 1)
	require.NoError(t, err)
	require.NoError(t, chunk.Fill(DirtBlockID))
	require.NoError(t, chunk.SetBlock(vec.Vec3{X: 1, Y: 2, Z: 3}, BlockID(70000)))

	data, err := chunk.MarshalBinary()
	require.NoError(t, err)

	restored, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, chunk.Coords, restored.Coords)
	assert.Equal(t, chunk.BitWidth(), restored.BitWidth())

	got, err := restored.GetBlock(vec.Vec3{X: 1, Y: 2, Z: 3})
	require.NoError(t, err)
	assert.Equal(t, BlockID(70000), got)

	got, err = restored.GetBlock(vec.Vec3{X: 15, Y: 15, Z: 15})
	require.NoError(t, err)
	assert.Equal(t, DirtBlockID, got)

	_, err = UnmarshalChunk(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrCorruptChunk)
	_, err = UnmarshalChunk(nil)
	assert.ErrorIs(t, err, ErrCorruptChunk)
}
