package octree

import (
	"fmt"

	"github.com/annel0/voxelcore/internal/spatial/morton"
)

// MaxDepth наибольшая допустимая глубина дерева.
const MaxDepth = 7

// Depth глубина дерева, 0..MaxDepth.
type Depth uint8

// NewDepth проверяет d и возвращает глубину.
func NewDepth(d int) (Depth, error) {
	if d < 0 || d > MaxDepth {
		return 0, fmt.Errorf("глубина %d вне 0..%d: %w", d, MaxDepth, ErrInvalidDepth)
	}
	return Depth(d), nil
}

func (d Depth) Int() int { return int(d) }

// Traversal задаёт спуск по уровням: полная глубина и уровень, с которого
// начинается спуск. Начальный уровень строго меньше глубины.
type Traversal struct {
	depth Depth
	start uint8
}

// NewTraversal спуск от корня.
func NewTraversal(depth Depth) (Traversal, error) {
	return NewTraversalAt(depth, 0)
}

// NewTraversalAt спуск с уровня start.
func NewTraversalAt(depth Depth, start int) (Traversal, error) {
	if start < 0 || start >= depth.Int() {
		return Traversal{}, fmt.Errorf("старт %d при глубине %d: %w", start, depth, ErrInvalidTraversal)
	}
	return Traversal{depth: depth, start: uint8(start)}, nil
}

func (t Traversal) Depth() Depth { return t.depth }
func (t Traversal) Start() int   { return int(t.start) }

// Levels число уровней, проходимых при спуске.
func (t Traversal) Levels() int { return t.depth.Int() - int(t.start) }

// Octants возвращает номера октантов для каждого уровня спуска к ячейке key,
// от начального уровня до листового. Уровню 0 (корню) соответствует старшая
// триада ключа, т.е. morton-уровень depth-1.
func (t Traversal) Octants(key morton.Key) []uint8 {
	path := make([]uint8, 0, t.Levels())
	for level := t.Start(); level < t.depth.Int(); level++ {
		path = append(path, key.Digit(t.depth.Int()-1-level))
	}
	return path
}
