package world

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/annel0/voxelcore/internal/memory/packed"
	"github.com/annel0/voxelcore/internal/spatial/morton"
	"github.com/annel0/voxelcore/internal/vec"
)

const (
	// ChunkSize длина ребра чанка в блоках
	ChunkSize = 16
	// ChunkVolume число блоков в чанке
	ChunkVolume = ChunkSize * ChunkSize * ChunkSize
)

var (
	ErrOutOfChunk     = errors.New("локальные координаты вне чанка")
	ErrCorruptChunk   = errors.New("повреждённые данные чанка")
	ErrChunkNotLoaded = errors.New("чанк не загружен")
	ErrOutOfWorld     = errors.New("координаты чанка вне мира")
)

// Chunk представляет участок мира 16x16x16 блоков.
// Блоки лежат в упакованном массиве в порядке Мортона локальных координат,
// так что соседние блоки обычно оказываются рядом в памяти.
//
// Chunk не синхронизирован: доступ к нему сериализует ChunkStore.
type Chunk struct {
	Coords vec.Vec3 // Координаты чанка в мире

	blocks *packed.PackedArray

	ChangeCounter int // Счетчик изменений с последнего сохранения
}

// NewChunk создаёт пустой (воздух) чанк с начальной шириной initialBits
func NewChunk(coords vec.Vec3, initialBits int) (*Chunk, error) {
	blocks, err := packed.NewWithWidth(ChunkVolume, initialBits)
	if err != nil {
		return nil, fmt.Errorf("чанк %v: %w", coords, err)
	}
	return &Chunk{Coords: coords, blocks: blocks}, nil
}

// localIndex переводит локальные координаты в индекс упакованного массива
func localIndex(local vec.Vec3) (int, error) {
	if local.X < 0 || local.X >= ChunkSize ||
		local.Y < 0 || local.Y >= ChunkSize ||
		local.Z < 0 || local.Z >= ChunkSize {
		return 0, fmt.Errorf("%v: %w", local, ErrOutOfChunk)
	}
	return int(morton.Encode(uint64(local.X), uint64(local.Y), uint64(local.Z))), nil
}

// GetBlock возвращает блок по локальным координатам
func (c *Chunk) GetBlock(local vec.Vec3) (BlockID, error) {
	idx, err := localIndex(local)
	if err != nil {
		return AirBlockID, err
	}
	v, err := c.blocks.Get(idx)
	return BlockID(v), err
}

// SetBlock устанавливает блок по локальным координатам
func (c *Chunk) SetBlock(local vec.Vec3, id BlockID) error {
	idx, err := localIndex(local)
	if err != nil {
		return err
	}

	old, err := c.blocks.Get(idx)
	if err != nil {
		return err
	}
	if BlockID(old) == id {
		return nil
	}

	if err := c.blocks.Set(idx, uint32(id)); err != nil {
		return err
	}
	c.ChangeCounter++
	return nil
}

// Fill заполняет весь чанк одним блоком
func (c *Chunk) Fill(id BlockID) error {
	if err := c.blocks.Fill(uint32(id)); err != nil {
		return err
	}
	c.ChangeCounter++
	return nil
}

// BitWidth возвращает текущую ширину ID блока в битах
func (c *Chunk) BitWidth() int {
	return c.blocks.BitWidth()
}

// MemoryBytes возвращает объём упакованных данных чанка
func (c *Chunk) MemoryBytes() int {
	return c.blocks.AllocatedBytes()
}

// ClearChanges сбрасывает счётчик изменений после сохранения
func (c *Chunk) ClearChanges() {
	c.ChangeCounter = 0
}

// MarshalBinary сериализует координаты и блоки чанка
func (c *Chunk) MarshalBinary() ([]byte, error) {
	blocks, err := c.blocks.MarshalBinary()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 3*binary.MaxVarintLen64+len(blocks))
	out = binary.AppendVarint(out, int64(c.Coords.X))
	out = binary.AppendVarint(out, int64(c.Coords.Y))
	out = binary.AppendVarint(out, int64(c.Coords.Z))
	return append(out, blocks...), nil
}

// UnmarshalChunk восстанавливает чанк из MarshalBinary
func UnmarshalChunk(data []byte) (*Chunk, error) {
	var coords [3]int64
	for i := range coords {
		v, n := binary.Varint(data)
		if n <= 0 {
			return nil, fmt.Errorf("координата %d: %w", i, ErrCorruptChunk)
		}
		coords[i] = v
		data = data[n:]
	}

	blocks := &packed.PackedArray{}
	if err := blocks.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptChunk, err)
	}
	if blocks.Len() != ChunkVolume || !blocks.IsAllocated() {
		return nil, fmt.Errorf("блоков %d: %w", blocks.Len(), ErrCorruptChunk)
	}

	return &Chunk{
		Coords: vec.Vec3{X: int(coords[0]), Y: int(coords[1]), Z: int(coords[2])},
		blocks: blocks,
	}, nil
}
