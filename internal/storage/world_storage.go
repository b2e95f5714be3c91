package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/voxelcore/internal/logging"
	"github.com/annel0/voxelcore/internal/vec"
	"github.com/annel0/voxelcore/internal/world"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Первый байт значения описывает кодирование снимка чанка
const (
	encodingRaw  byte = 0
	encodingZstd byte = 1
)

var (
	ErrNotReady      = errors.New("хранилище не готово")
	ErrChunkNotFound = errors.New("чанк не найден в хранилище")
)

// WorldStorage представляет собой хранилище снимков чанков мира в BadgerDB.
// Ключи имеют вид "<worldID>:chunk:<ключ Мортона в hex>", поэтому чанки одного
// мира лежат подряд и близкие в пространстве чанки близки и на диске.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	worldID uuid.UUID
	useZstd bool
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	mutex   sync.RWMutex
	isReady bool
}

// Options параметры хранилища
type Options struct {
	WorldID  uuid.UUID // uuid.Nil: сгенерировать новый
	UseZstd  bool      // Сжимать снимки zstd
	InMemory bool      // Держать BadgerDB в памяти (для тестов)
}

// NewWorldStorage создает новое хранилище мира
func NewWorldStorage(dataPath string, o Options) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("не удалось создать zstd decoder: %w", err)
	}

	worldID := o.WorldID
	if worldID == uuid.Nil {
		worldID = uuid.New()
	}

	logging.Debug("Хранилище мира %s открыто: %s (zstd=%v)", worldID, dbPath, o.UseZstd)

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		worldID: worldID,
		useZstd: o.UseZstd,
		encoder: encoder,
		decoder: decoder,
		isReady: true,
	}, nil
}

// WorldID возвращает идентификатор мира
func (ws *WorldStorage) WorldID() uuid.UUID {
	return ws.worldID
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.encoder.Close()
	ws.decoder.Close()
	return ws.db.Close()
}

func (ws *WorldStorage) chunkKey(coords vec.Vec3) ([]byte, error) {
	key, err := world.ChunkKey(coords)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%s:chunk:%016x", ws.worldID, uint64(key))), nil
}

func (ws *WorldStorage) encode(chunk *world.Chunk) ([]byte, error) {
	raw, err := chunk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации чанка: %w", err)
	}

	if !ws.useZstd {
		return append([]byte{encodingRaw}, raw...), nil
	}
	return ws.encoder.EncodeAll(raw, []byte{encodingZstd}), nil
}

func (ws *WorldStorage) decode(value []byte) (*world.Chunk, error) {
	if len(value) == 0 {
		return nil, world.ErrCorruptChunk
	}

	payload := value[1:]
	switch value[0] {
	case encodingRaw:
	case encodingZstd:
		var err error
		payload, err = ws.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("ошибка распаковки zstd: %w", err)
		}
	default:
		return nil, fmt.Errorf("неизвестное кодирование %d: %w", value[0], world.ErrCorruptChunk)
	}

	return world.UnmarshalChunk(payload)
}

// SaveChunk сохраняет снимок чанка, если в нём есть изменения.
// Возвращает true, если запись была выполнена.
func (ws *WorldStorage) SaveChunk(chunk *world.Chunk) (bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return false, ErrNotReady
	}

	// Если нет изменений, пропускаем
	if chunk.ChangeCounter == 0 {
		return false, nil
	}

	key, err := ws.chunkKey(chunk.Coords)
	if err != nil {
		return false, err
	}
	data, err := ws.encode(chunk)
	if err != nil {
		return false, err
	}

	err = ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	// Очищаем счётчик изменений в чанке
	chunk.ClearChanges()
	return true, nil
}

// LoadChunk загружает снимок чанка
func (ws *WorldStorage) LoadChunk(coords vec.Vec3) (*world.Chunk, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrNotReady
	}

	key, err := ws.chunkKey(coords)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%v: %w", coords, ErrChunkNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	chunk, err := ws.decode(data)
	if err != nil {
		logging.LogCorruptSnapshot(string(key), err, data)
		return nil, err
	}
	return chunk, nil
}

// DeleteChunk удаляет снимок чанка
func (ws *WorldStorage) DeleteChunk(coords vec.Vec3) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}

	key, err := ws.chunkKey(coords)
	if err != nil {
		return err
	}
	return ws.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// SaveStore сохраняет все изменённые чанки хранилища одной пачкой.
// Возвращает число записанных чанков.
func (ws *WorldStorage) SaveStore(store *world.ChunkStore) (int, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return 0, ErrNotReady
	}

	batch := ws.db.NewWriteBatch()
	defer batch.Cancel()

	var (
		saved  = make(map[*world.Chunk]int)
		encErr error
	)
	store.Each(func(chunk *world.Chunk) bool {
		if chunk.ChangeCounter == 0 {
			return true
		}
		key, err := ws.chunkKey(chunk.Coords)
		if err != nil {
			encErr = err
			return false
		}
		data, err := ws.encode(chunk)
		if err != nil {
			encErr = err
			return false
		}
		if err := batch.Set(key, data); err != nil {
			encErr = err
			return false
		}
		// Счётчик снимается под блокировкой хранилища вместе с кодированием
		saved[chunk] = chunk.ChangeCounter
		return true
	})
	if encErr != nil {
		return 0, encErr
	}

	if err := batch.Flush(); err != nil {
		return 0, fmt.Errorf("ошибка записи пачки в BadgerDB: %w", err)
	}

	store.AckChanges(saved)
	logging.Debug("Сохранено %d чанков мира %s", len(saved), ws.worldID)
	return len(saved), nil
}

// LoadInto загружает снимок чанка в ChunkStore. Отсутствующий снимок не
// считается ошибкой: возвращается false.
func (ws *WorldStorage) LoadInto(store *world.ChunkStore, coords vec.Vec3) (bool, error) {
	chunk, err := ws.LoadChunk(coords)
	if errors.Is(err, ErrChunkNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := store.Insert(chunk); err != nil {
		return false, err
	}
	return true, nil
}

// CountChunks возвращает число сохранённых чанков мира
func (ws *WorldStorage) CountChunks() (int, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return 0, ErrNotReady
	}

	prefix := []byte(ws.worldID.String() + ":chunk:")
	count := 0
	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
