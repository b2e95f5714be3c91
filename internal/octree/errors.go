package octree

import "github.com/annel0/voxelcore/internal/memory"

// Ошибки построения узлов и параметров обхода. Это нарушения контракта того
// же вида, что и в пакете memory: memory.IsContractViolation для них true.
var (
	ErrInvalidDepth     = memory.NewError("invalid octree depth")
	ErrInvalidTraversal = memory.NewError("invalid octree traversal")
	ErrIndexOutOfRange  = memory.NewError("node index exceeds 24 bits")
	ErrInvalidMask      = memory.NewError("invalid branch child mask")
	ErrInvalidOctant    = memory.NewError("octant out of range")
	ErrNotBranch        = memory.NewError("node is not a branch")
)
