package packed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/annel0/voxelcore/internal/memory"
)

// Формат снимка:
//
//	[uvarint len] [1 байт ширины] [1 байт флагов] [упакованные данные]
//
// Данные присутствуют только при флаге flagAllocated и занимают ровно
// AllocatedBytes байт, без защитной области.
const flagAllocated = 1 << 0

var ErrCorruptSnapshot = errors.New("повреждённый снимок упакованного массива")

// MarshalBinary сериализует массив вместе с состоянием выделения.
func (a *PackedArray) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, binary.MaxVarintLen64+2+a.AllocatedBytes())
	out = binary.AppendUvarint(out, uint64(a.size))

	var flags byte
	if a.buf != nil {
		flags |= flagAllocated
	}
	out = append(out, byte(a.bits), flags)

	if a.buf != nil {
		out = append(out, a.buf[:packedSize(a.bits, a.size)]...)
	}
	return out, nil
}

// UnmarshalBinary восстанавливает массив из снимка MarshalBinary.
func (a *PackedArray) UnmarshalBinary(data []byte) error {
	size, n := binary.Uvarint(data)
	if n <= 0 || size > math.MaxInt32 {
		return fmt.Errorf("длина: %w", ErrCorruptSnapshot)
	}
	data = data[n:]
	if len(data) < 2 {
		return fmt.Errorf("заголовок: %w", ErrCorruptSnapshot)
	}

	width, flags := int(data[0]), data[1]
	if width < 1 || width > MaxBits {
		return fmt.Errorf("ширина %d: %w", width, memory.ErrInvalidWidth)
	}
	data = data[2:]

	restored := PackedArray{bits: width, size: int(size)}
	if flags&flagAllocated != 0 {
		want := packedSize(width, restored.size)
		if len(data) != want {
			return fmt.Errorf("ожидалось %d байт данных, получено %d: %w", want, len(data), ErrCorruptSnapshot)
		}
		restored.buf = allocBuffer(width, restored.size)
		copy(restored.buf, data)
	} else if len(data) != 0 {
		return fmt.Errorf("данные у невыделенного массива: %w", ErrCorruptSnapshot)
	}

	*a = restored
	return nil
}
