package fractal

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Level keeps parts and their output matrices, index i of one matches index i of the other
type Level struct {
	Parts    []Part
	Matrices []mgl32.Mat4
}

// Tree is a flat per-level fractal. Level 0 holds the root only,
// level L holds BranchingFactor^L parts.
type Tree struct {
	Levels []Level

	storage *Storage
	nodes   int
}

func (t *Tree) Depth() int {
	return len(t.Levels)
}

func (t *Tree) NodeCount() int {
	return t.nodes
}

func (t *Tree) Released() bool {
	return t.Levels == nil
}

func LevelSize(level int) int {
	size := 1
	for i := 0; i < level; i++ {
		size *= BranchingFactor
	}
	return size
}

// levelCount treats depth 0 as a root-only tree
func levelCount(depth int) int {
	if depth < 1 {
		return 1
	}
	return depth
}

// NodeCount is the number of parts in a tree of the given depth
func NodeCount(depth int) int {
	total := 0
	for l := 0; l < levelCount(depth); l++ {
		total += LevelSize(l)
	}
	return total
}

// Storage hands out trees from a node budget. Owned by the lifecycle,
// not safe for concurrent use.
type Storage struct {
	budget int
	inUse  int
}

// NewStorage with budget <= 0 fits exactly one tree of MaxDepth
func NewStorage(budget int) *Storage {
	if budget <= 0 {
		budget = NodeCount(MaxDepth)
	}
	return &Storage{budget: budget}
}

func (s *Storage) Budget() int {
	return s.budget
}

func (s *Storage) InUse() int {
	return s.inUse
}

func (s *Storage) reserve(nodes int) error {
	if s.inUse+nodes > s.budget {
		return errors.Wrapf(ErrAllocationFailure, "%d nodes requested, %d of %d in use", nodes, s.inUse, s.budget)
	}
	s.inUse += nodes
	return nil
}

// Allocate reserves all levels of a tree. On failure everything reserved
// by this call is returned to the budget before the error is reported.
func (s *Storage) Allocate(depth int) (*Tree, error) {
	if depth < 0 || depth > MaxDepth {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "depth %d is out of range [0, %d]", depth, MaxDepth)
	}

	levels := levelCount(depth)
	t := &Tree{
		Levels:  make([]Level, 0, levels),
		storage: s,
	}
	for l := 0; l < levels; l++ {
		size := LevelSize(l)
		if err := s.reserve(size); err != nil {
			s.Release(t)
			return nil, errors.Wrapf(err, "Failed to allocate level %d", l)
		}
		t.nodes += size
		t.Levels = append(t.Levels, Level{
			Parts:    make([]Part, size),
			Matrices: make([]mgl32.Mat4, size),
		})
	}
	return t, nil
}

// Release returns the tree nodes to the budget. Second call is a no-op.
func (s *Storage) Release(t *Tree) {
	if t == nil || t.storage != s || t.Levels == nil {
		return
	}
	s.inUse -= t.nodes
	t.nodes = 0
	t.Levels = nil
}

// Populate resets every part to its palette entry and clears matrices
func Populate(t *Tree) {
	for l := range t.Levels {
		level := &t.Levels[l]
		for i := range level.Parts {
			level.Parts[i] = NewPart(ChildSlot(i))
		}
		for i := range level.Matrices {
			level.Matrices[i] = mgl32.Mat4{}
		}
	}
}
