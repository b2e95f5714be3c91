// Package morton кодирует трёхмерные координаты в 64-битный ключ Мортона
// (Z-order): биты трёх компонент перемежаются, так что близкие в пространстве
// точки получают близкие ключи.
//
// Каждая компонента занимает младшие 21 бит; старшие биты молча отбрасываются.
// Знаковые координаты кодируются по модулю: (3,-5,2) и (3,5,2) дают один ключ,
// а декодирование всегда возвращает неотрицательные значения.
package morton

import "github.com/annel0/voxelcore/internal/vec"

const (
	// ComponentBits число бит на компоненту.
	ComponentBits = 21
	// MaxComponent наибольшее представимое значение компоненты.
	MaxComponent = 1<<ComponentBits - 1
	// Levels число уровней (триад бит) в ключе.
	Levels = ComponentBits

	digitMask = 0b111
)

// Key ключ Мортона.
type Key uint64

// Split разносит младшие 21 бит v с промежутками по 2 бита.
func Split(v uint64) uint64 {
	x := v & MaxComponent
	x = (x | x<<32) & 0x1f00000000ffff
	x = (x | x<<16) & 0x1f0000ff0000ff
	x = (x | x<<8) & 0x100f00f00f00f00f
	x = (x | x<<4) & 0x10c30c30c30c30c3
	return (x | x<<2) & 0x1249249249249249
}

// Join обратная к Split: собирает каждый третий бит в младшие 21 бит.
func Join(v uint64) uint64 {
	x := v & 0x1249249249249249
	x = (x ^ x>>2) & 0x10c30c30c30c30c3
	x = (x ^ x>>4) & 0x100f00f00f00f00f
	x = (x ^ x>>8) & 0x1f0000ff0000ff
	x = (x ^ x>>16) & 0x1f00000000ffff
	return (x ^ x>>32) & MaxComponent
}

// Encode кодирует беззнаковую тройку. x ложится в бит 0, y в бит 1, z в бит 2.
func Encode(x, y, z uint64) Key {
	return Key(Split(x) | Split(y)<<1 | Split(z)<<2)
}

// EncodeSigned кодирует знаковую тройку по модулю компонент.
func EncodeSigned(x, y, z int64) Key {
	return Encode(unsignedAbs(x), unsignedAbs(y), unsignedAbs(z))
}

// EncodeVec кодирует vec.Vec3 по модулю компонент.
func EncodeVec(v vec.Vec3) Key {
	return EncodeSigned(int64(v.X), int64(v.Y), int64(v.Z))
}

// EncodeArray кодирует массив [x, y, z] по модулю компонент.
func EncodeArray(a [3]int64) Key {
	return EncodeSigned(a[0], a[1], a[2])
}

// Decode возвращает компоненты ключа.
func (k Key) Decode() (x, y, z uint64) {
	return Join(uint64(k)), Join(uint64(k) >> 1), Join(uint64(k) >> 2)
}

// DecodeSigned возвращает компоненты как int64. Они всегда неотрицательны.
func (k Key) DecodeSigned() (x, y, z int64) {
	ux, uy, uz := k.Decode()
	return int64(ux), int64(uy), int64(uz)
}

// Array возвращает компоненты массивом.
func (k Key) Array() [3]int64 {
	x, y, z := k.DecodeSigned()
	return [3]int64{x, y, z}
}

// Vec возвращает компоненты как vec.Vec3.
func (k Key) Vec() vec.Vec3 {
	x, y, z := k.DecodeSigned()
	return vec.Vec3{X: int(x), Y: int(y), Z: int(z)}
}

// Digit возвращает номер октанта (0..7) на уровне level; уровень 0 соответствует
// младшей триаде бит.
func (k Key) Digit(level int) uint8 {
	return uint8((uint64(k) >> (uint(level) * 3)) & digitMask)
}

// Parent отбрасывает levels младших уровней: ключ ячейки-предка.
func (k Key) Parent(levels int) Key {
	return k >> (uint(levels) * 3)
}

// Child дописывает октант снизу: ключ дочерней ячейки.
func (k Key) Child(octant uint8) Key {
	return k<<3 | Key(octant&digitMask)
}

func unsignedAbs(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}
