package packed

import (
	"math/rand"
	"testing"

	"github.com/annel0/voxelcore/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackedArray_ChunkScenario(t *testing.T) {
	arr := New(4096)

	require.NoError(t, arr.Set(562, 5))

	v, err := arr.Get(1560)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v, "Нетронутый элемент должен быть нулём")

	v, err = arr.Get(562)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), v)

	assert.GreaterOrEqual(t, arr.BitWidth(), 3, "Для 5 нужно минимум 3 бита")
	assert.Equal(t, (arr.BitWidth()*4096+7)/8, arr.AllocatedBytes())
}

func TestPackedArray_LastWriteWins(t *testing.T) {
	const size = 1000
	rng := rand.New(rand.NewSource(42))

	arr := New(size)
	expected := make([]uint32, size)
	var largest uint32

	for i := 0; i < 20000; i++ {
		idx := rng.Intn(size)
		// Смещаем распределение к маленьким значениям, чтобы рост шёл постепенно.
		value := uint32(rng.Int63n(1 << uint(rng.Intn(33))))

		require.NoError(t, arr.Set(idx, value))
		expected[idx] = value
		if value > largest {
			largest = value
		}

		assert.Equal(t, requiredBits(largest), arr.BitWidth(), "Ширина должна быть минимальной для максимума")
	}

	for i, want := range expected {
		got, err := arr.Get(i)
		require.NoError(t, err)
		if got != want {
			t.Fatalf("Элемент %d: ожидалось %d, получено %d", i, want, got)
		}
	}
}

func TestPackedArray_GrowPreservesValues(t *testing.T) {
	arr, err := NewWithWidth(333, 4)
	require.NoError(t, err)

	for i := 0; i < arr.Len(); i++ {
		require.NoError(t, arr.Set(i, uint32(i%16)))
	}

	require.NoError(t, arr.GrowBy(3))
	assert.Equal(t, 7, arr.BitWidth())

	require.NoError(t, arr.GrowByDoubling())
	assert.Equal(t, 14, arr.BitWidth())

	for i := 0; i < arr.Len(); i++ {
		v, err := arr.Get(i)
		require.NoError(t, err)
		assert.Equal(t, uint32(i%16), v, "Значение %d потеряно при росте", i)
	}
	assert.Equal(t, (14*333+7)/8, arr.AllocatedBytes())
}

func TestPackedArray_GrowLimits(t *testing.T) {
	arr, err := NewWithWidth(8, 20)
	require.NoError(t, err)

	assert.ErrorIs(t, arr.GrowBy(13), memory.ErrInvalidWidth)
	assert.ErrorIs(t, arr.GrowBy(-1), memory.ErrInvalidWidth)
	assert.Equal(t, 20, arr.BitWidth(), "Неудачный рост не должен менять ширину")

	require.NoError(t, arr.GrowBy(0))
	require.NoError(t, arr.GrowByDoubling())
	assert.Equal(t, MaxBits, arr.BitWidth(), "Удвоение ограничено 32 битами")
	assert.ErrorIs(t, arr.GrowByDoubling(), memory.ErrInvalidWidth)

	_, err = NewWithWidth(8, 0)
	assert.ErrorIs(t, err, memory.ErrInvalidWidth)
	_, err = NewWithWidth(8, 33)
	assert.ErrorIs(t, err, memory.ErrInvalidWidth)
}

func TestPackedArray_FullWidthValues(t *testing.T) {
	arr := New(17)
	values := []uint32{0xFFFFFFFF, 0, 0x80000000, 1, 0xDEADBEEF}

	for i, v := range values {
		require.NoError(t, arr.Set(16-i, v))
	}
	assert.Equal(t, MaxBits, arr.BitWidth())

	for i, v := range values {
		got, err := arr.Get(16 - i)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestPackedArray_NeighboursUntouched(t *testing.T) {
	arr, err := NewWithWidth(64, 5)
	require.NoError(t, err)
	require.NoError(t, arr.Fill(0x1F))

	// Элемент 3 пересекает границу байта (биты 15..19).
	require.NoError(t, arr.Set(3, 0))

	for i := 0; i < arr.Len(); i++ {
		v, err := arr.Get(i)
		require.NoError(t, err)
		if i == 3 {
			assert.Equal(t, uint32(0), v)
		} else {
			assert.Equal(t, uint32(0x1F), v, "Сосед %d испорчен", i)
		}
	}
}

func TestPackedArray_GuardRegion(t *testing.T) {
	for _, size := range []int{0, 1, 3, 7, 8, 9, 4096} {
		for width := 1; width <= MaxBits; width++ {
			arr, err := NewWithWidth(size, width)
			require.NoError(t, err)

			assert.Equal(t, arr.AllocatedBytes()+GuardBytes, len(arr.buf),
				"Буфер должен содержать защитную область (size=%d, width=%d)", size, width)

			if size == 0 {
				continue
			}
			// Последний элемент читается и пишется через полное слово.
			last := size - 1
			require.NoError(t, arr.Set(last, uint32(mask(width))))
			v, err := arr.Get(last)
			require.NoError(t, err)
			assert.Equal(t, uint32(mask(width)), v)
		}
	}
}

func TestPackedArray_ContractViolations(t *testing.T) {
	arr := New(16)

	_, err := arr.Get(16)
	assert.ErrorIs(t, err, memory.ErrIndexOutOfBounds)
	assert.ErrorIs(t, arr.Set(-1, 1), memory.ErrIndexOutOfBounds)
	assert.True(t, memory.IsContractViolation(err))

	assert.ErrorIs(t, arr.Allocate(), memory.ErrAlreadyAllocated)

	require.NoError(t, arr.Deallocate())
	assert.False(t, arr.IsAllocated())
	assert.Equal(t, 0, arr.AllocatedBytes())
	assert.ErrorIs(t, arr.Deallocate(), memory.ErrNotAllocated)

	_, err = arr.Get(0)
	assert.ErrorIs(t, err, memory.ErrNotAllocated)
	assert.ErrorIs(t, arr.Set(0, 1), memory.ErrNotAllocated)
}

func TestPackedArray_DeferredLifecycle(t *testing.T) {
	arr, err := NewDeferredWithWidth(4096, 2)
	require.NoError(t, err)
	assert.False(t, arr.IsAllocated())
	assert.Equal(t, 0, arr.AllocatedBytes())

	// Рост до выделения меняет только запланированную ширину.
	require.NoError(t, arr.GrowBy(2))
	assert.Equal(t, 4, arr.BitWidth())

	require.NoError(t, arr.Allocate())
	assert.Equal(t, 4*4096/8, arr.AllocatedBytes())

	require.NoError(t, arr.Set(4095, 9))
	v, err := arr.Get(4095)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), v)

	// После повторного выделения данные обнулены.
	require.NoError(t, arr.Deallocate())
	require.NoError(t, arr.Allocate())
	v, err = arr.Get(4095)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)
	assert.Equal(t, 4, arr.BitWidth(), "Ширина не уменьшается")
}

func TestPackedArray_String(t *testing.T) {
	arr := New(16)
	assert.Equal(t, "PackedArray(allocated=2B, width=1, len=16)", arr.String())
}

func TestRequiredBits(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		want  int
	}{
		{"0 -> 1", 0, 1},
		{"1 -> 1", 1, 1},
		{"2 -> 2", 2, 2},
		{"5 -> 3", 5, 3},
		{"255 -> 8", 255, 8},
		{"256 -> 9", 256, 9},
		{"max -> 32", 0xFFFFFFFF, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := requiredBits(tt.value); got != tt.want {
				t.Errorf("requiredBits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPackedArray_Snapshot(t *testing.T) {
	arr := New(100)
	for i := 0; i < arr.Len(); i++ {
		require.NoError(t, arr.Set(i, uint32(i*i)))
	}

	data, err := arr.MarshalBinary()
	require.NoError(t, err)

	var restored PackedArray
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.Equal(t, arr.BitWidth(), restored.BitWidth())
	assert.Equal(t, arr.Len(), restored.Len())

	want, err := arr.Values()
	require.NoError(t, err)
	got, err := restored.Values()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	deferred := NewDeferred(10)
	data, err = deferred.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.False(t, restored.IsAllocated())
	assert.Equal(t, 10, restored.Len())

	assert.ErrorIs(t, restored.UnmarshalBinary([]byte{100, 3, flagAllocated, 0}), ErrCorruptSnapshot)
	assert.ErrorIs(t, restored.UnmarshalBinary(nil), ErrCorruptSnapshot)
}

func BenchmarkPackedArray_Set(b *testing.B) {
	a := New(4096)
	require.NoError(b, a.Set(562, 5))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Set(562, 5)
	}
}

func BenchmarkPackedArray_Get(b *testing.B) {
	a := New(4096)
	require.NoError(b, a.Set(562, 5))

	var sink uint32
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sink, _ = a.Get(1560)
	}
	_ = sink
}
