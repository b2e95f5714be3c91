package pool

// FreeList хранит индексы освобождённых слотов для повторной выдачи (LIFO).
type FreeList struct {
	slots []int
}

func NewFreeList() *FreeList {
	return &FreeList{}
}

// Push запоминает освобождённый слот.
func (f *FreeList) Push(slot int) {
	f.slots = append(f.slots, slot)
}

// Pop возвращает последний освобождённый слот.
func (f *FreeList) Pop() (int, bool) {
	if len(f.slots) == 0 {
		return 0, false
	}
	slot := f.slots[len(f.slots)-1]
	f.slots = f.slots[:len(f.slots)-1]
	return slot, true
}

func (f *FreeList) Len() int { return len(f.slots) }

// AllocateRecycled выделяет слот из free-листа, а если он пуст, то по курсору пула.
func AllocateRecycled[T any](p *Pool[T], f *FreeList, value T) (int, error) {
	if slot, ok := f.Pop(); ok {
		if _, err := p.AllocateAt(slot, value); err != nil {
			f.Push(slot)
			return 0, err
		}
		return slot, nil
	}
	return p.Allocate(value)
}

// DeallocateRecycled освобождает слот и отдаёт его free-листу.
func DeallocateRecycled[T any](p *Pool[T], f *FreeList, slot int) error {
	if err := p.Deallocate(slot); err != nil {
		return err
	}
	f.Push(slot)
	return nil
}
