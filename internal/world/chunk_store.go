package world

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/memory"
	"github.com/annel0/voxelcore/internal/memory/packed"
	"github.com/annel0/voxelcore/internal/memory/pool"
	"github.com/annel0/voxelcore/internal/metrics"
	"github.com/annel0/voxelcore/internal/octree"
	"github.com/annel0/voxelcore/internal/spatial/morton"
	"github.com/annel0/voxelcore/internal/vec"
)

// chunkBias сдвигает знаковые координаты чанка в беззнаковый диапазон
// компоненты ключа Мортона: [-2^20, 2^20) -> [0, 2^21).
const chunkBias = 1 << (morton.ComponentBits - 1)

// ChunkKey возвращает ключ Мортона для координат чанка. Координаты
// сдвигаются на chunkBias, поэтому чанки, отличающиеся только знаком,
// получают разные ключи.
func ChunkKey(coords vec.Vec3) (morton.Key, error) {
	var biased [3]uint64
	for i, c := range [3]int{coords.X, coords.Y, coords.Z} {
		b := int64(c) + chunkBias
		if b < 0 || b > morton.MaxComponent {
			return 0, fmt.Errorf("%v: %w", coords, ErrOutOfWorld)
		}
		biased[i] = uint64(b)
	}
	return morton.Encode(biased[0], biased[1], biased[2]), nil
}

// ChunkStore хранит загруженные чанки в пуле фиксированной ёмкости.
// Каждый загруженный чанк адресуется листом octree.NodeID, индекс которого
// указывает слот пула; освобождённые слоты переиспользуются через FreeList.
//
// accounted[slot] хранит объём чанка, уже учтённый в метрике packed_bytes:
// чанк может вырасти и вне Update, поэтому при выгрузке вычитается именно
// учтённое значение.
type ChunkStore struct {
	mu          sync.RWMutex
	chunks      *pool.Pool[*Chunk]
	free        *pool.FreeList
	index       map[morton.Key]octree.NodeID
	accounted   []int
	initialBits int
	metrics     *metrics.Collector
}

// NewChunkStore создаёт хранилище на capacity чанков. m может быть nil.
func NewChunkStore(capacity, initialBits int, m *metrics.Collector) (*ChunkStore, error) {
	if capacity <= 0 || capacity > octree.MaxIndex+1 {
		return nil, fmt.Errorf("ёмкость %d вне 1..%d", capacity, octree.MaxIndex+1)
	}
	if initialBits < 1 || initialBits > packed.MaxBits {
		return nil, fmt.Errorf("начальная ширина %d: %w", initialBits, memory.ErrInvalidWidth)
	}

	return &ChunkStore{
		chunks:      pool.New[*Chunk](capacity),
		free:        pool.NewFreeList(),
		index:       make(map[morton.Key]octree.NodeID),
		accounted:   make([]int, capacity),
		initialBits: initialBits,
		metrics:     m,
	}, nil
}

// LoadOrCreate возвращает загруженный чанк или создаёт пустой.
func (s *ChunkStore) LoadOrCreate(coords vec.Vec3) (*Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrCreateLocked(coords)
}

func (s *ChunkStore) loadOrCreateLocked(coords vec.Vec3) (*Chunk, error) {
	key, err := ChunkKey(coords)
	if err != nil {
		return nil, err
	}
	if node, ok := s.index[key]; ok {
		return s.chunkAt(node)
	}

	chunk, err := NewChunk(coords, s.initialBits)
	if err != nil {
		return nil, err
	}
	if err := s.insertLocked(key, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// Insert кладёт готовый чанк (например, загруженный из хранилища),
// заменяя уже загруженный с теми же координатами.
func (s *ChunkStore) Insert(chunk *Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := ChunkKey(chunk.Coords)
	if err != nil {
		return err
	}
	if node, ok := s.index[key]; ok {
		old, err := s.chunkAt(node)
		if err != nil {
			return err
		}
		if _, err := s.chunks.AllocateAt(node.Index(), chunk); err != nil {
			return err
		}
		logging.Trace("Чанк %v заменён в слоте %d (было %d байт)", chunk.Coords, node.Index(), old.MemoryBytes())
		s.account(node.Index(), chunk)
		return nil
	}
	return s.insertLocked(key, chunk)
}

func (s *ChunkStore) insertLocked(key morton.Key, chunk *Chunk) error {
	slot, err := pool.AllocateRecycled(s.chunks, s.free, chunk)
	if err != nil {
		if errors.Is(err, memory.ErrPoolExhausted) {
			s.metrics.ObservePoolExhausted()
			logging.Warn("Пул чанков исчерпан (%d слотов), чанк %v не загружен", s.chunks.Cap(), chunk.Coords)
		}
		return err
	}

	node, err := octree.NewLeaf(slot)
	if err != nil {
		// Ёмкость ограничена MaxIndex+1 в конструкторе, сюда попасть нельзя.
		_ = pool.DeallocateRecycled(s.chunks, s.free, slot)
		return err
	}

	s.index[key] = node
	s.metrics.ObserveChunkAllocated()
	s.account(slot, chunk)
	logging.Trace("Чанк %v загружен в слот %d", chunk.Coords, slot)
	return nil
}

// account приводит учтённый объём слота к текущему объёму чанка.
func (s *ChunkStore) account(slot int, chunk *Chunk) {
	bytes := chunk.MemoryBytes()
	if delta := bytes - s.accounted[slot]; delta != 0 {
		s.metrics.AddPackedBytes(delta)
	}
	s.accounted[slot] = bytes
}

func (s *ChunkStore) chunkAt(node octree.NodeID) (*Chunk, error) {
	if !node.IsLeaf() {
		return nil, fmt.Errorf("узел %v не лист", node)
	}
	chunk, err := s.chunks.Get(node.Index())
	if err != nil {
		return nil, err
	}
	return *chunk, nil
}

// Chunk возвращает загруженный чанк или ErrChunkNotLoaded.
func (s *ChunkStore) Chunk(coords vec.Vec3) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunkLocked(coords)
}

func (s *ChunkStore) chunkLocked(coords vec.Vec3) (*Chunk, error) {
	key, err := ChunkKey(coords)
	if err != nil {
		return nil, err
	}
	node, ok := s.index[key]
	if !ok {
		return nil, fmt.Errorf("%v: %w", coords, ErrChunkNotLoaded)
	}
	return s.chunkAt(node)
}

// NodeID возвращает лист, адресующий чанк.
func (s *ChunkStore) NodeID(coords vec.Vec3) (octree.NodeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, err := ChunkKey(coords)
	if err != nil {
		return octree.Empty, false
	}
	node, ok := s.index[key]
	return node, ok
}

// Unload выгружает чанк и отдаёт его слот на переиспользование.
func (s *ChunkStore) Unload(coords vec.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := ChunkKey(coords)
	if err != nil {
		return err
	}
	node, ok := s.index[key]
	if !ok {
		return fmt.Errorf("%v: %w", coords, ErrChunkNotLoaded)
	}

	slot := node.Index()
	if err := pool.DeallocateRecycled(s.chunks, s.free, slot); err != nil {
		return err
	}

	delete(s.index, key)
	s.metrics.ObserveChunkFreed()
	s.metrics.AddPackedBytes(-s.accounted[slot])
	s.accounted[slot] = 0
	return nil
}

// Update вызывает fn для чанка (создавая его при необходимости) под
// блокировкой хранилища и учитывает рост упакованного массива в метриках.
func (s *ChunkStore) Update(coords vec.Vec3, fn func(*Chunk) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, err := s.loadOrCreateLocked(coords)
	if err != nil {
		return err
	}

	width := chunk.BitWidth()
	err = fn(chunk)

	if grown := chunk.BitWidth(); grown > width {
		s.metrics.ObserveGrow(width, grown)
		logging.Debug("Чанк %v расширен: %d -> %d бит", chunk.Coords, width, grown)
	}
	if key, kerr := ChunkKey(coords); kerr == nil {
		s.account(s.index[key].Index(), chunk)
	}
	return err
}

// AckChanges вычитает из счётчиков изменений значения, снятые при
// сохранении. Изменения, сделанные после снятия, остаются в счётчике и
// попадут в следующее сохранение.
func (s *ChunkStore) AckChanges(saved map[*Chunk]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for chunk, n := range saved {
		chunk.ChangeCounter = max(chunk.ChangeCounter-n, 0)
	}
}

// SetBlock устанавливает блок по мировым координатам.
func (s *ChunkStore) SetBlock(pos vec.Vec3, id BlockID) error {
	return s.Update(pos.ToChunkCoords(), func(c *Chunk) error {
		return c.SetBlock(pos.LocalInChunk(), id)
	})
}

// GetBlock возвращает блок по мировым координатам. Незагруженные чанки
// читаются как воздух.
func (s *ChunkStore) GetBlock(pos vec.Vec3) (BlockID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, err := s.chunkLocked(pos.ToChunkCoords())
	if errors.Is(err, ErrChunkNotLoaded) {
		return AirBlockID, nil
	}
	if err != nil {
		return AirBlockID, err
	}
	return chunk.GetBlock(pos.LocalInChunk())
}

// Len возвращает число загруженных чанков.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Cap возвращает ёмкость пула чанков.
func (s *ChunkStore) Cap() int {
	return s.chunks.Cap()
}

// MemoryBytes возвращает суммарный объём упакованных данных.
func (s *ChunkStore) MemoryBytes() int {
	total := 0
	s.Each(func(c *Chunk) bool {
		total += c.MemoryBytes()
		return true
	})
	return total
}

// Each обходит чанки в порядке ключей Мортона, пока fn возвращает true.
func (s *ChunkStore) Each(fn func(*Chunk) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]morton.Key, 0, len(s.index))
	for key := range s.index {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		chunk, err := s.chunkAt(s.index[key])
		if err != nil {
			continue
		}
		if !fn(chunk) {
			return
		}
	}
}
