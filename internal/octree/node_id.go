// Package octree описывает компактное представление узлов разреженного
// октодерева: 32-битный идентификатор узла, глубину и параметры обхода.
//
// Идентификатор состоит из 24-битного индекса и 8-битного тега:
//
//	0                         пустой узел
//	тег 0xFF                  лист, индекс указывает слот полезной нагрузки
//	тег 0x01..0xFE            ветвь, тег = маска присутствующих дочерних октантов,
//	                          индекс указывает блок дочерних узлов
//
// Алгоритмы построения и обхода дерева в пакет не входят.
package octree

import (
	"fmt"
	"math/bits"
)

const (
	// MaxIndex наибольший индекс, помещающийся в 24 бита.
	MaxIndex = 0xFFFFFF
	// LeafTag значение тега, зарезервированное за листьями.
	LeafTag uint8 = 0xFF
	// Octants число дочерних октантов ветви.
	Octants = 8

	indexMask = 0x00FFFFFF
	tagMask   = 0xFF000000
	tagShift  = 24
)

// Kind вид узла.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindLeaf
	KindBranch
	// KindMalformed ненулевое значение с нулевым тегом: такой узел не строится
	// конструкторами пакета, но может прийти из сырых данных.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLeaf:
		return "leaf"
	case KindBranch:
		return "branch"
	default:
		return "malformed"
	}
}

// NodeID упакованный идентификатор узла.
type NodeID uint32

// Empty пустой узел.
const Empty NodeID = 0

// NewLeaf создаёт лист, ссылающийся на слот полезной нагрузки index.
func NewLeaf(index int) (NodeID, error) {
	if index < 0 || index > MaxIndex {
		return Empty, fmt.Errorf("индекс листа %d: %w", index, ErrIndexOutOfRange)
	}
	return pack(index, LeafTag), nil
}

// NewBranch создаёт ветвь с блоком дочерних узлов index и маской mask.
// Маски 0 и 0xFF запрещены: первая неотличима от пустого узла, вторая от листа.
func NewBranch(index int, mask uint8) (NodeID, error) {
	if index < 0 || index > MaxIndex {
		return Empty, fmt.Errorf("индекс ветви %d: %w", index, ErrIndexOutOfRange)
	}
	if mask == 0 || mask == LeafTag {
		return Empty, fmt.Errorf("маска %#02x: %w", mask, ErrInvalidMask)
	}
	return pack(index, mask), nil
}

// FromRaw восстанавливает идентификатор из сохранённого 32-битного значения.
func FromRaw(raw uint32) NodeID { return NodeID(raw) }

func pack(index int, tag uint8) NodeID {
	return NodeID(uint32(index)&indexMask | uint32(tag)<<tagShift)
}

// Raw возвращает 32-битное представление.
func (n NodeID) Raw() uint32 { return uint32(n) }

// Index возвращает 24-битное поле индекса.
func (n NodeID) Index() int { return int(uint32(n) & indexMask) }

func (n NodeID) tag() uint8 { return uint8(uint32(n) >> tagShift) }

// Kind определяет вид узла.
func (n NodeID) Kind() Kind {
	switch tag := n.tag(); {
	case n == Empty:
		return KindEmpty
	case tag == LeafTag:
		return KindLeaf
	case tag != 0:
		return KindBranch
	default:
		return KindMalformed
	}
}

func (n NodeID) IsEmpty() bool  { return n == Empty }
func (n NodeID) IsLeaf() bool   { return n.Kind() == KindLeaf }
func (n NodeID) IsBranch() bool { return n.Kind() == KindBranch }

// HasChildren сообщает, есть ли у ветви дочерние узлы. Для листа false.
func (n NodeID) HasChildren() bool {
	return n.IsBranch()
}

// Mask возвращает маску дочерних октантов ветви.
func (n NodeID) Mask() (uint8, error) {
	if !n.IsBranch() {
		return 0, fmt.Errorf("узел %s: %w", n.Kind(), ErrNotBranch)
	}
	return n.tag(), nil
}

// ChildCount число присутствующих дочерних октантов ветви.
func (n NodeID) ChildCount() int {
	if !n.IsBranch() {
		return 0
	}
	return bits.OnesCount8(n.tag())
}

// HasChild проверяет наличие октанта у ветви. Для листа и пустого узла
// возвращает ErrNotBranch.
func (n NodeID) HasChild(octant int) (bool, error) {
	if octant < 0 || octant >= Octants {
		return false, fmt.Errorf("октант %d: %w", octant, ErrInvalidOctant)
	}
	mask, err := n.Mask()
	if err != nil {
		return false, err
	}
	return mask&(1<<uint(octant)) != 0, nil
}

// LegacyHasChildren проверяет "тег ненулевой", как это делает сохранённый
// формат. Для листа возвращает true, потому что тег листа 0xFF.
func (n NodeID) LegacyHasChildren() bool {
	return uint32(n)&tagMask != 0
}

// LegacyHasChild проверяет бит octant в теге без учёта вида узла. Для листа
// все октанты считаются присутствующими. Перед вызовом нужно проверить IsLeaf.
func (n NodeID) LegacyHasChild(octant int) bool {
	return (uint32(n)>>tagShift)&(1<<uint(octant&(Octants-1))) != 0
}

func (n NodeID) String() string {
	switch n.Kind() {
	case KindEmpty:
		return "NodeID(empty)"
	case KindLeaf:
		return fmt.Sprintf("NodeID(leaf %d)", n.Index())
	case KindBranch:
		return fmt.Sprintf("NodeID(branch %d mask=%08b)", n.Index(), n.tag())
	default:
		return fmt.Sprintf("NodeID(malformed %#08x)", uint32(n))
	}
}
