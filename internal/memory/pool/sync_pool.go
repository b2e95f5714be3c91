package pool

import "sync"

// SyncPool оборачивает Pool мьютексом для совместного доступа из нескольких
// горутин. Значения наружу отдаются копиями, изменение идёт через Update под
// блокировкой, поэтому указатели на слоты не утекают из-под мьютекса.
type SyncPool[T any] struct {
	mu   sync.RWMutex
	pool *Pool[T]
}

// NewSync создаёт синхронизированный пул на capacity слотов.
func NewSync[T any](capacity int) *SyncPool[T] {
	return &SyncPool[T]{pool: New[T](capacity)}
}

func (s *SyncPool[T]) Allocate(value T) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Allocate(value)
}

func (s *SyncPool[T]) AllocateAt(slot int, value T) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.AllocateAt(slot, value)
}

// Load возвращает копию значения слота.
func (s *SyncPool[T]) Load(slot int) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, err := s.pool.Get(slot)
	if err != nil {
		var zero T
		return zero, err
	}
	return *v, nil
}

// Update вызывает fn с указателем на значение слота под блокировкой записи.
func (s *SyncPool[T]) Update(slot int, fn func(*T)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.pool.GetMut(slot)
	if err != nil {
		return err
	}
	fn(v)
	return nil
}

func (s *SyncPool[T]) Deallocate(slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Deallocate(slot)
}

func (s *SyncPool[T]) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Release()
}

func (s *SyncPool[T]) Cap() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool.Cap()
}

func (s *SyncPool[T]) Next() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool.Next()
}
