package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Renderer consumes one frame snapshot per Advance.
// Matrices in the frame alias fractal storage: read them during Render,
// Clone the frame to keep it longer.
type Renderer interface {
	Render(frame *Frame) error
}

// Batch is one instanced draw: one mesh, Count matrices
type Batch struct {
	Matrices []mgl32.Mat4
	Count    int
}

// Bounds is a culling volume, center and full size
type Bounds struct {
	Center mgl32.Vec3
	Size   mgl32.Vec3
}

type Frame struct {
	Index    uint64
	Name     string
	Mesh     string
	Material string
	Levels   []Batch
	Bounds   Bounds
}

func (f *Frame) InstanceCount() int {
	total := 0
	for _, b := range f.Levels {
		total += b.Count
	}
	return total
}

// Clone copies matrices so the result does not alias fractal storage
func (f *Frame) Clone() *Frame {
	c := *f
	c.Levels = make([]Batch, len(f.Levels))
	for i, b := range f.Levels {
		c.Levels[i] = Batch{
			Matrices: append([]mgl32.Mat4(nil), b.Matrices[:b.Count]...),
			Count:    b.Count,
		}
	}
	return &c
}

// Each calls fn for every instance in level order
func (f *Frame) Each(fn func(level, index int, m mgl32.Mat4)) {
	for iLevel, b := range f.Levels {
		for i, m := range b.Matrices[:b.Count] {
			fn(iLevel, i, m)
		}
	}
}

type Func func(frame *Frame) error

func (fn Func) Render(frame *Frame) error {
	return fn(frame)
}

type multi []Renderer

// Multi passes every frame to all renderers in order, stopping at the first error
func Multi(renderers ...Renderer) Renderer {
	return multi(renderers)
}

func (m multi) Render(frame *Frame) error {
	for i, r := range m {
		if err := r.Render(frame); err != nil {
			return errors.Wrapf(err, "renderer %d", i)
		}
	}
	return nil
}

// Discard drops frames
var Discard Renderer = Func(func(*Frame) error { return nil })
