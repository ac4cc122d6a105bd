package fractal

import (
	"log"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/fractal_browser/config"
	"github.com/mogaika/fractal_browser/renderer"
)

// culling bounds size relative to the owner scale
const boundsScale = 3

// Fractal owns the tree between Activate and Deactivate and pushes a frame
// to the renderer on every Advance. Not safe for concurrent use, the host
// serializes lifecycle calls with Advance.
type Fractal struct {
	renderer renderer.Renderer

	cfg     config.Fractal
	storage *Storage
	tree    *Tree
	sched   *scheduler
	frame   uint64
	batches []renderer.Batch
}

func New(r renderer.Renderer) *Fractal {
	if r == nil {
		r = renderer.Discard
	}
	return &Fractal{renderer: r}
}

func Validate(cfg *config.Fractal) error {
	switch {
	case cfg.Depth < 0 || cfg.Depth > MaxDepth:
		return errors.Wrapf(ErrInvalidConfiguration, "depth %d is out of range [0, %d]", cfg.Depth, MaxDepth)
	case cfg.Mesh == "":
		return errors.Wrapf(ErrInvalidConfiguration, "mesh handle is missing")
	case cfg.Material == "":
		return errors.Wrapf(ErrInvalidConfiguration, "material handle is missing")
	case !(cfg.ScaleFactor > 0) || math.IsInf(float64(cfg.ScaleFactor), 0):
		return errors.Wrapf(ErrInvalidConfiguration, "scale factor %v must be positive", cfg.ScaleFactor)
	case math.IsNaN(float64(cfg.SpinRate)) || math.IsInf(float64(cfg.SpinRate), 0):
		return errors.Wrapf(ErrInvalidConfiguration, "spin rate %v is not finite", cfg.SpinRate)
	case cfg.SpinRate < 0:
		// spin angles only grow
		return errors.Wrapf(ErrInvalidConfiguration, "spin rate %v is negative", cfg.SpinRate)
	case cfg.BatchSize < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "batch size %d is negative", cfg.BatchSize)
	case cfg.Workers < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "workers count %d is negative", cfg.Workers)
	case cfg.MaxNodes < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "node budget %d is negative", cfg.MaxNodes)
	}
	return nil
}

// Activate allocates and populates the tree and starts the workers.
// On error nothing stays allocated.
func (f *Fractal) Activate(cfg config.Fractal) error {
	if f.tree != nil {
		return errors.Wrapf(ErrAlreadyActivated, "%q", f.cfg.Name)
	}
	if err := Validate(&cfg); err != nil {
		return err
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = config.DefaultBatchSize
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	budget := cfg.MaxNodes
	if budget == 0 {
		budget = NodeCount(MaxDepth)
	}
	if f.storage == nil || f.storage.Budget() != budget {
		f.storage = NewStorage(budget)
	}

	tree, err := f.storage.Allocate(cfg.Depth)
	if err != nil {
		return errors.Wrapf(err, "Failed to activate %q", cfg.Name)
	}
	Populate(tree)

	f.cfg = cfg
	f.tree = tree
	f.sched = newScheduler(cfg.Workers, cfg.BatchSize)
	f.frame = 0
	f.batches = make([]renderer.Batch, len(tree.Levels))

	log.Printf("[fractal] Activated %q: %d levels, %d nodes, %d workers, batch %d",
		cfg.Name, tree.Depth(), tree.NodeCount(), cfg.Workers, cfg.BatchSize)
	return nil
}

// Deactivate stops the workers and releases the tree. No-op when inactive.
func (f *Fractal) Deactivate() {
	if f.tree == nil {
		return
	}
	f.sched.stop()
	f.storage.Release(f.tree)

	f.tree = nil
	f.sched = nil
	f.batches = nil

	log.Printf("[fractal] Deactivated %q after %d frames", f.cfg.Name, f.frame)
}

func (f *Fractal) Reconfigure(cfg config.Fractal) error {
	f.Deactivate()
	return f.Activate(cfg)
}

// Advance moves the fractal deltaTime seconds forward and renders the frame
func (f *Fractal) Advance(deltaTime float32, owner Owner) error {
	if f.tree == nil {
		return errors.Wrapf(ErrNotActivated, "advance")
	}

	f.sched.propagate(f.tree, f.cfg.SpinRate*deltaTime, f.cfg.ScaleFactor, owner)
	f.frame++

	for i := range f.tree.Levels {
		level := &f.tree.Levels[i]
		f.batches[i] = renderer.Batch{Matrices: level.Matrices, Count: len(level.Matrices)}
	}

	root := &f.tree.Levels[0].Parts[0]
	size := boundsScale * owner.Scale
	frame := renderer.Frame{
		Index:    f.frame,
		Name:     f.cfg.Name,
		Mesh:     f.cfg.Mesh,
		Material: f.cfg.Material,
		Levels:   f.batches,
		Bounds: renderer.Bounds{
			Center: root.WorldPosition,
			Size:   mgl32.Vec3{size, size, size},
		},
	}
	if err := f.renderer.Render(&frame); err != nil {
		return errors.Wrapf(err, "Failed to render frame %d", f.frame)
	}
	return nil
}

func (f *Fractal) Active() bool {
	return f.tree != nil
}

// Config returns the active configuration with defaults filled in
func (f *Fractal) Config() config.Fractal {
	return f.cfg
}

func (f *Fractal) FrameIndex() uint64 {
	return f.frame
}

func (f *Fractal) LevelCount() int {
	if f.tree == nil {
		return 0
	}
	return f.tree.Depth()
}

// Tree gives read access to the storage, nil when inactive
func (f *Fractal) Tree() *Tree {
	return f.tree
}

func (f *Fractal) Part(level, index int) (Part, error) {
	if f.tree == nil {
		return Part{}, errors.Wrapf(ErrNotActivated, "part")
	}
	if level < 0 || level >= len(f.tree.Levels) {
		return Part{}, errors.Errorf("level %d is out of range [0, %d)", level, len(f.tree.Levels))
	}
	parts := f.tree.Levels[level].Parts
	if index < 0 || index >= len(parts) {
		return Part{}, errors.Errorf("index %d is out of range [0, %d)", index, len(parts))
	}
	return parts[index], nil
}
