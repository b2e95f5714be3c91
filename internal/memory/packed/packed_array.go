// Package packed реализует массив беззнаковых целых фиксированной длины,
// упакованных побитно. Ширина элемента (1..32 бита) растёт автоматически до
// минимальной, достаточной для самого большого записанного значения.
//
// Чтение и запись идут через 64-битное слово, перекрывающее нужный диапазон
// бит, поэтому за упакованными данными всегда лежит защитная область из
// GuardBytes байт: чтение слова для последнего элемента не выходит за буфер.
//
// PackedArray не потокобезопасен: одновременно писать в него может только
// один владелец.
package packed

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/annel0/voxelcore/internal/memory"
)

const (
	// MaxBits максимальная ширина элемента.
	MaxBits = 32
	// GuardBytes размер защитной области за упакованными данными.
	GuardBytes = 8

	initialBits = 1
	byteBits    = 8
)

// PackedArray упакованный массив uint32.
//
// buf == nil означает состояние "не выделен": размер буфера запланирован, но
// память не занята.
type PackedArray struct {
	buf  []byte
	bits int
	size int
}

// New создаёт выделенный массив из count элементов шириной 1 бит.
func New(count int) *PackedArray {
	a := NewDeferred(count)
	a.buf = allocBuffer(a.bits, a.size)
	return a
}

// NewWithWidth создаёт выделенный массив с заданной начальной шириной.
func NewWithWidth(count, width int) (*PackedArray, error) {
	a, err := NewDeferredWithWidth(count, width)
	if err != nil {
		return nil, err
	}
	a.buf = allocBuffer(a.bits, a.size)
	return a, nil
}

// NewDeferred создаёт массив без памяти. Перед использованием нужен Allocate.
func NewDeferred(count int) *PackedArray {
	if count < 0 {
		count = 0
	}
	return &PackedArray{bits: initialBits, size: count}
}

// NewDeferredWithWidth как NewDeferred, но с заданной шириной.
func NewDeferredWithWidth(count, width int) (*PackedArray, error) {
	if width < 1 || width > MaxBits {
		return nil, fmt.Errorf("ширина %d вне диапазона 1..%d: %w", width, MaxBits, memory.ErrInvalidWidth)
	}
	a := NewDeferred(count)
	a.bits = width
	return a, nil
}

// Allocate выделяет обнулённый буфер под текущую ширину.
func (a *PackedArray) Allocate() error {
	if a.buf != nil {
		return memory.ErrAlreadyAllocated
	}
	a.buf = allocBuffer(a.bits, a.size)
	return nil
}

// Deallocate освобождает буфер. Ширина и длина сохраняются.
func (a *PackedArray) Deallocate() error {
	if a.buf == nil {
		return memory.ErrNotAllocated
	}
	a.buf = nil
	return nil
}

// Get возвращает значение элемента index.
func (a *PackedArray) Get(index int) (uint32, error) {
	if err := a.check(index); err != nil {
		return 0, err
	}
	return readBits(a.buf, index*a.bits, a.bits), nil
}

// Set записывает value в элемент index, расширяя ширину при необходимости.
func (a *PackedArray) Set(index int, value uint32) error {
	if err := a.check(index); err != nil {
		return err
	}

	if req := requiredBits(value); req > a.bits {
		a.resize(req)
	}

	writeBits(a.buf, index*a.bits, a.bits, value)
	return nil
}

// Fill записывает value во все элементы.
func (a *PackedArray) Fill(value uint32) error {
	if a.buf == nil {
		return memory.ErrNotAllocated
	}
	if req := requiredBits(value); req > a.bits {
		a.resize(req)
	}
	for i := 0; i < a.size; i++ {
		writeBits(a.buf, i*a.bits, a.bits, value)
	}
	return nil
}

// Values возвращает копию всех значений.
func (a *PackedArray) Values() ([]uint32, error) {
	if a.buf == nil {
		return nil, memory.ErrNotAllocated
	}
	out := make([]uint32, a.size)
	for i := range out {
		out[i] = readBits(a.buf, i*a.bits, a.bits)
	}
	return out, nil
}

// GrowBy увеличивает ширину на amount бит, перенося все значения.
func (a *PackedArray) GrowBy(amount int) error {
	if amount < 0 || a.bits+amount > MaxBits {
		return fmt.Errorf("рост %d+%d бит: %w", a.bits, amount, memory.ErrInvalidWidth)
	}
	if amount == 0 {
		return nil
	}
	a.resize(a.bits + amount)
	return nil
}

// GrowByDoubling удваивает ширину (не больше MaxBits).
func (a *PackedArray) GrowByDoubling() error {
	if a.bits >= MaxBits {
		return fmt.Errorf("ширина уже %d бит: %w", a.bits, memory.ErrInvalidWidth)
	}
	a.resize(min(a.bits*2, MaxBits))
	return nil
}

// BitWidth возвращает текущую ширину элемента в битах.
func (a *PackedArray) BitWidth() int { return a.bits }

// Len возвращает число элементов.
func (a *PackedArray) Len() int { return a.size }

// IsAllocated сообщает, выделен ли буфер.
func (a *PackedArray) IsAllocated() bool { return a.buf != nil }

// AllocatedBytes возвращает размер упакованных данных без защитной области,
// либо 0, если буфер не выделен.
func (a *PackedArray) AllocatedBytes() int {
	if a.buf == nil {
		return 0
	}
	return packedSize(a.bits, a.size)
}

func (a *PackedArray) String() string {
	return fmt.Sprintf("PackedArray(allocated=%dB, width=%d, len=%d)", a.AllocatedBytes(), a.bits, a.size)
}

func (a *PackedArray) check(index int) error {
	if a.buf == nil {
		return memory.ErrNotAllocated
	}
	if index < 0 || index >= a.size {
		return fmt.Errorf("индекс %d при длине %d: %w", index, a.size, memory.ErrIndexOutOfBounds)
	}
	return nil
}

// resize переносит все элементы в новый буфер шириной newBits.
// Для невыделенного массива меняется только запланированная ширина.
func (a *PackedArray) resize(newBits int) {
	oldBits := a.bits
	a.bits = newBits

	if a.buf == nil {
		return
	}

	old := a.buf
	a.buf = allocBuffer(newBits, a.size)

	src, dst := 0, 0
	for i := 0; i < a.size; i++ {
		writeBits(a.buf, dst, newBits, readBits(old, src, oldBits))
		src += oldBits
		dst += newBits
	}
}

func allocBuffer(width, count int) []byte {
	return make([]byte, packedSize(width, count)+GuardBytes)
}

func packedSize(width, count int) int {
	return (width*count + byteBits - 1) / byteBits
}

func readBits(buf []byte, bitIndex, n int) uint32 {
	word := binary.LittleEndian.Uint64(buf[bitIndex>>3:])
	word >>= uint(bitIndex & 7)
	return uint32(word & mask(n))
}

func writeBits(buf []byte, bitIndex, n int, value uint32) {
	window := buf[bitIndex>>3:]
	shift := uint(bitIndex & 7)

	word := binary.LittleEndian.Uint64(window)
	word &^= mask(n) << shift
	word |= (uint64(value) & mask(n)) << shift

	binary.LittleEndian.PutUint64(window, word)
}

func mask(n int) uint64 {
	return (uint64(1) << uint(n)) - 1
}

// requiredBits число бит для value, минимум 1.
func requiredBits(value uint32) int {
	return max(bits.Len32(value), 1)
}
