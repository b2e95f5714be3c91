// Package pool реализует пул слотов фиксированной ёмкости для значений одного
// типа. Индексы слотов стабильны на всё время жизни пула, поэтому на них можно
// ссылаться извне (например, из идентификаторов узлов октодерева).
//
// Пул не отслеживает, какие слоты заняты: вызывающий код гарантирует, что
// обращается только к выделенным и ещё не освобождённым слотам. Освобождённый
// слот не возвращается курсору; переиспользование ведёт внешний FreeList.
package pool

import (
	"fmt"

	"github.com/annel0/voxelcore/internal/memory"
)

// Pool пул слотов. Не потокобезопасен, для совместного доступа см. SyncPool.
type Pool[T any] struct {
	slots    []T
	next     int
	released bool
}

// New создаёт пул на capacity слотов.
func New[T any](capacity int) *Pool[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool[T]{slots: make([]T, capacity)}
}

// Allocate кладёт value в следующий слот курсора и возвращает его индекс.
func (p *Pool[T]) Allocate(value T) (int, error) {
	if p.released {
		return 0, memory.ErrReleased
	}
	if p.next >= len(p.slots) {
		return 0, fmt.Errorf("ёмкость %d исчерпана: %w", len(p.slots), memory.ErrPoolExhausted)
	}

	slot := p.next
	p.next++
	p.slots[slot] = value
	return slot, nil
}

// AllocateAt кладёт value в явно указанный слот. Вызывающий код утверждает,
// что слот свободен; пул это не проверяет. Курсор не сдвигается.
func (p *Pool[T]) AllocateAt(slot int, value T) (int, error) {
	if err := p.check(slot); err != nil {
		return 0, err
	}
	p.slots[slot] = value
	return slot, nil
}

// Get возвращает указатель на значение слота для чтения.
func (p *Pool[T]) Get(slot int) (*T, error) {
	if err := p.check(slot); err != nil {
		return nil, err
	}
	return &p.slots[slot], nil
}

// GetMut возвращает указатель на значение слота для изменения.
func (p *Pool[T]) GetMut(slot int) (*T, error) {
	return p.Get(slot)
}

// Deallocate обнуляет значение слота. Слот не возвращается курсору.
func (p *Pool[T]) Deallocate(slot int) error {
	if err := p.check(slot); err != nil {
		return err
	}
	var zero T
	p.slots[slot] = zero
	return nil
}

// Release освобождает всю память пула. Повторный вызов и любые операции
// после него возвращают memory.ErrReleased.
func (p *Pool[T]) Release() error {
	if p.released {
		return memory.ErrReleased
	}
	p.slots = nil
	p.released = true
	return nil
}

// Cap возвращает ёмкость пула.
func (p *Pool[T]) Cap() int { return len(p.slots) }

// Next возвращает позицию курсора: число слотов, когда-либо выданных Allocate.
func (p *Pool[T]) Next() int { return p.next }

func (p *Pool[T]) check(slot int) error {
	if p.released {
		return memory.ErrReleased
	}
	if slot < 0 || slot >= len(p.slots) {
		return fmt.Errorf("слот %d при ёмкости %d: %w", slot, len(p.slots), memory.ErrIndexOutOfBounds)
	}
	return nil
}
