package storage

import (
	"testing"

	"github.com/annel0/voxelcore/internal/vec"
	"github.com/annel0/voxelcore/internal/world"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T, useZstd bool) *WorldStorage {
	t.Helper()

	storage, err := NewWorldStorage(t.TempDir(), Options{UseZstd: useZstd})
	require.NoError(t, err, "Не удалось создать хранилище")
	t.Cleanup(func() { storage.Close() })

	return storage
}

func TestSaveAndLoadChunk(t *testing.T) {
	for _, useZstd := range []bool{false, true} {
		storage := setupTestStorage(t, useZstd)

		coords := vec.Vec3{X: 10, Y: -2, Z: 20}
		chunk, err := world.NewChunk(coords, 1)
		require.NoError(t, err)

		pos1 := vec.Vec3{X: 5, Y: 5, Z: 5}
		require.NoError(t, chunk.SetBlock(pos1, world.WaterBlockID))
		pos2 := vec.Vec3{X: 8, Y: 3, Z: 0}
		require.NoError(t, chunk.SetBlock(pos2, world.GrassBlockID))

		saved, err := storage.SaveChunk(chunk)
		require.NoError(t, err)
		assert.True(t, saved)
		assert.Equal(t, 0, chunk.ChangeCounter, "После сохранения счётчик изменений сбрасывается")

		loaded, err := storage.LoadChunk(coords)
		require.NoError(t, err)
		assert.Equal(t, coords, loaded.Coords)
		assert.Equal(t, chunk.BitWidth(), loaded.BitWidth())

		got, err := loaded.GetBlock(pos1)
		require.NoError(t, err)
		assert.Equal(t, world.WaterBlockID, got)

		got, err = loaded.GetBlock(pos2)
		require.NoError(t, err)
		assert.Equal(t, world.GrassBlockID, got)

		got, err = loaded.GetBlock(vec.Vec3{})
		require.NoError(t, err)
		assert.Equal(t, world.AirBlockID, got)
	}
}

func TestSaveChunkWithoutChanges(t *testing.T) {
	storage := setupTestStorage(t, true)

	chunk, err := world.NewChunk(vec.Vec3{X: 1}, 1)
	require.NoError(t, err)

	saved, err := storage.SaveChunk(chunk)
	require.NoError(t, err)
	assert.False(t, saved, "Чанк без изменений не должен записываться")

	_, err = storage.LoadChunk(chunk.Coords)
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestDeleteChunk(t *testing.T) {
	storage := setupTestStorage(t, false)

	chunk, err := world.NewChunk(vec.Vec3{Z: -4}, 1)
	require.NoError(t, err)
	require.NoError(t, chunk.Fill(world.StoneBlockID))

	_, err = storage.SaveChunk(chunk)
	require.NoError(t, err)

	require.NoError(t, storage.DeleteChunk(chunk.Coords))
	_, err = storage.LoadChunk(chunk.Coords)
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestSaveStoreAndLoadInto(t *testing.T) {
	storage := setupTestStorage(t, true)

	store, err := world.NewChunkStore(16, 1, nil)
	require.NoError(t, err)

	gen := world.NewWorldGenerator(42, 8)
	for x := -1; x <= 1; x++ {
		for z := -1; z <= 1; z++ {
			_, err := gen.GenerateChunk(store, vec.Vec3{X: x, Y: 0, Z: z})
			require.NoError(t, err)
		}
	}

	n, err := storage.SaveStore(store)
	require.NoError(t, err)
	count, err := storage.CountChunks()
	require.NoError(t, err)
	assert.Equal(t, n, count)

	// Повторное сохранение ничего не пишет
	n2, err := storage.SaveStore(store)
	require.NoError(t, err)
	assert.Equal(t, 0, n2)

	// Правка после сохранения попадает в следующую пачку
	require.NoError(t, store.SetBlock(vec.Vec3{X: 2, Y: 15, Z: 2}, world.SandBlockID))
	n3, err := storage.SaveStore(store)
	require.NoError(t, err)
	assert.Equal(t, 1, n3)

	restored, err := world.NewChunkStore(16, 1, nil)
	require.NoError(t, err)

	store.Each(func(c *world.Chunk) bool {
		if _, err := storage.LoadChunk(c.Coords); err != nil {
			// Полностью воздушные чанки не получили изменений и не сохранялись
			assert.ErrorIs(t, err, ErrChunkNotFound)
			return true
		}

		ok, err := storage.LoadInto(restored, c.Coords)
		require.NoError(t, err)
		assert.True(t, ok)

		local := vec.Vec3{X: 3, Y: 4, Z: 5}
		want, err := c.GetBlock(local)
		require.NoError(t, err)
		got, err := restored.GetBlock(c.Coords.ChunkOrigin().Add(local))
		require.NoError(t, err)
		assert.Equal(t, want, got)
		return true
	})
	assert.Equal(t, count, restored.Len())

	ok, err := storage.LoadInto(restored, vec.Vec3{X: 100})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWorldIsolation(t *testing.T) {
	dir := t.TempDir()
	idA := uuid.New()

	a, err := NewWorldStorage(dir, Options{WorldID: idA})
	require.NoError(t, err)

	chunk, err := world.NewChunk(vec.Vec3{X: 2}, 1)
	require.NoError(t, err)
	require.NoError(t, chunk.Fill(world.DirtBlockID))
	_, err = a.SaveChunk(chunk)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := NewWorldStorage(dir, Options{})
	require.NoError(t, err)
	assert.NotEqual(t, idA, b.WorldID())
	_, err = b.LoadChunk(chunk.Coords)
	assert.ErrorIs(t, err, ErrChunkNotFound, "Чанки другого мира не должны быть видны")
	require.NoError(t, b.Close())

	a, err = NewWorldStorage(dir, Options{WorldID: idA})
	require.NoError(t, err)
	defer a.Close()
	_, err = a.LoadChunk(chunk.Coords)
	assert.NoError(t, err)
}

func TestCorruptSnapshot(t *testing.T) {
	storage := setupTestStorage(t, true)

	coords := vec.Vec3{Y: 3}
	key, err := storage.chunkKey(coords)
	require.NoError(t, err)

	err = storage.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte{encodingRaw, 0x01, 0x02})
	})
	require.NoError(t, err)

	_, err = storage.LoadChunk(coords)
	assert.ErrorIs(t, err, world.ErrCorruptChunk)

	err = storage.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte{0x7F})
	})
	require.NoError(t, err)
	_, err = storage.LoadChunk(coords)
	assert.ErrorIs(t, err, world.ErrCorruptChunk)
}

func TestClosedStorage(t *testing.T) {
	storage, err := NewWorldStorage("", Options{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, storage.Close())
	require.NoError(t, storage.Close(), "Повторное закрытие безопасно")

	_, err = storage.LoadChunk(vec.Vec3{})
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = storage.CountChunks()
	assert.ErrorIs(t, err, ErrNotReady)
}
