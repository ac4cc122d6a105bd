package fractal

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/fractal_browser/config"
	"github.com/mogaika/fractal_browser/r3d"
	"github.com/mogaika/fractal_browser/renderer"
)

func testConfig(depth int) config.Fractal {
	cfg := config.DefaultFractal()
	cfg.Name = "test"
	cfg.Depth = depth
	return cfg
}

func activated(t *testing.T, cfg config.Fractal) (*Fractal, *renderer.Recorder) {
	rec := renderer.NewRecorder()
	f := New(rec)
	if err := f.Activate(cfg); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	t.Cleanup(f.Deactivate)
	return f, rec
}

// frameInput is one step of a scripted host
type frameInput struct {
	dt    float32
	owner Owner
}

func script(frames int) []frameInput {
	inputs := make([]frameInput, frames)
	for i := range inputs {
		inputs[i] = frameInput{
			dt: 1.0 / float32(30+i%7),
			owner: Owner{
				Position: mgl32.Vec3{float32(i) * 0.1, 1, -float32(i) * 0.05},
				Rotation: r3d.RotateAroundAxis(r3d.AxisY, float32(i)*0.02),
				Scale:    1.5,
			},
		}
	}
	return inputs
}

func run(t *testing.T, cfg config.Fractal, inputs []frameInput) []*renderer.Frame {
	f, rec := activated(t, cfg)
	frames := make([]*renderer.Frame, 0, len(inputs))
	for _, in := range inputs {
		if err := f.Advance(in.dt, in.owner); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		frames = append(frames, rec.Last())
	}
	return frames
}

func TestAdvanceNotActivated(t *testing.T) {
	f := New(nil)
	if err := f.Advance(0.016, DefaultOwner()); !errors.Is(err, ErrNotActivated) {
		t.Errorf("Advance before Activate error %v; expected not activated", err)
	}
	if _, err := f.Part(0, 0); !errors.Is(err, ErrNotActivated) {
		t.Errorf("Part before Activate error %v; expected not activated", err)
	}

	f, _ = activated(t, testConfig(2))
	f.Deactivate()
	if err := f.Advance(0.016, DefaultOwner()); !errors.Is(err, ErrNotActivated) {
		t.Errorf("Advance after Deactivate error %v; expected not activated", err)
	}
}

func TestActivateInvalidConfiguration(t *testing.T) {
	var invalidTests = []func(c *config.Fractal){
		func(c *config.Fractal) { c.Depth = -1 },
		func(c *config.Fractal) { c.Depth = MaxDepth + 1 },
		func(c *config.Fractal) { c.Mesh = "" },
		func(c *config.Fractal) { c.Material = "" },
		func(c *config.Fractal) { c.ScaleFactor = 0 },
		func(c *config.Fractal) { c.BatchSize = -5 },
		func(c *config.Fractal) { c.Workers = -1 },
		func(c *config.Fractal) { c.SpinRate = -1 },
		func(c *config.Fractal) { c.SpinRate = float32(math.Inf(1)) },
	}
	for i, mutate := range invalidTests {
		cfg := testConfig(3)
		mutate(&cfg)

		f := New(nil)
		if err := f.Activate(cfg); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("case %d: error %v; expected invalid configuration", i, err)
		}
		if f.Active() || f.Tree() != nil {
			t.Errorf("case %d: fractal active after failed activation", i)
		}
	}
}

func TestActivateAllocationFailure(t *testing.T) {
	cfg := testConfig(4)
	cfg.MaxNodes = NodeCount(3)

	f := New(nil)
	err := f.Activate(cfg)
	if !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("error %v; expected allocation failure", err)
	}
	if f.Active() {
		t.Errorf("fractal active after failed allocation")
	}
	if f.storage.InUse() != 0 {
		t.Errorf("%d nodes leaked", f.storage.InUse())
	}

	cfg.Depth = 3
	if err := f.Activate(cfg); err != nil {
		t.Errorf("Activate within budget: %v", err)
	}
	f.Deactivate()
}

func TestActivateTwice(t *testing.T) {
	f, _ := activated(t, testConfig(2))
	if err := f.Activate(testConfig(3)); !errors.Is(err, ErrAlreadyActivated) {
		t.Errorf("error %v; expected already activated", err)
	}
	if f.LevelCount() != 2 {
		t.Errorf("second Activate changed tree to %d levels", f.LevelCount())
	}
}

func TestDepthOneRootFollowsOwner(t *testing.T) {
	for _, depth := range []int{0, 1} {
		f, rec := activated(t, testConfig(depth))
		for _, in := range script(10) {
			if err := f.Advance(in.dt, in.owner); err != nil {
				t.Fatalf("Advance: %v", err)
			}
			frame := rec.Last()
			if len(frame.Levels) != 1 || frame.InstanceCount() != 1 {
				t.Fatalf("depth %d frame has %d levels, %d instances", depth, len(frame.Levels), frame.InstanceCount())
			}
			if pos := frame.Levels[0].Matrices[0].Col(3).Vec3(); pos != in.owner.Position {
				t.Errorf("depth %d root translation %v; expected %v", depth, pos, in.owner.Position)
			}
			if frame.Bounds.Center != in.owner.Position {
				t.Errorf("bounds center %v; expected %v", frame.Bounds.Center, in.owner.Position)
			}
		}
	}
}

func TestFrameLayout(t *testing.T) {
	f, rec := activated(t, testConfig(4))
	owner := DefaultOwner()
	owner.Scale = 2
	if err := f.Advance(0.1, owner); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	frame := rec.Last()
	if frame.Index != 1 || f.FrameIndex() != 1 {
		t.Errorf("frame index %d / %d; expected 1", frame.Index, f.FrameIndex())
	}
	if frame.Mesh != config.DefaultMesh || frame.Material != config.DefaultMaterial || frame.Name != "test" {
		t.Errorf("frame handles %q %q %q", frame.Name, frame.Mesh, frame.Material)
	}
	for l, batch := range frame.Levels {
		if batch.Count != LevelSize(l) || len(batch.Matrices) != LevelSize(l) {
			t.Errorf("level %d batch count %d; expected %d", l, batch.Count, LevelSize(l))
		}
	}
	if frame.InstanceCount() != NodeCount(4) {
		t.Errorf("%d instances; expected %d", frame.InstanceCount(), NodeCount(4))
	}
	if frame.Bounds.Size != (mgl32.Vec3{6, 6, 6}) {
		t.Errorf("bounds size %v; expected 3 * owner scale", frame.Bounds.Size)
	}
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	inputs := script(25)

	serial := testConfig(5)
	serial.Workers = 1

	parallel := testConfig(5)
	parallel.Workers = 8
	parallel.BatchSize = 3

	coarse := testConfig(5)
	coarse.Workers = 3
	coarse.BatchSize = 64

	reference := run(t, serial, inputs)
	for _, cfg := range []config.Fractal{parallel, coarse} {
		frames := run(t, cfg, inputs)
		for iFrame := range frames {
			a, b := reference[iFrame], frames[iFrame]
			for l := range a.Levels {
				for i := range a.Levels[l].Matrices {
					if a.Levels[l].Matrices[i] != b.Levels[l].Matrices[i] {
						t.Fatalf("workers %d batch %d: frame %d level %d index %d differs",
							cfg.Workers, cfg.BatchSize, iFrame, l, i)
					}
				}
			}
		}
	}
}

func TestReactivateReproducesFirstFrame(t *testing.T) {
	in := script(1)[0]
	f, rec := activated(t, testConfig(4))

	if err := f.Advance(in.dt, in.owner); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	first := rec.Last()

	// move further so the second activation has something to forget
	for _, next := range script(5) {
		f.Advance(next.dt, next.owner)
	}

	if err := f.Reconfigure(f.Config()); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	if f.FrameIndex() != 0 {
		t.Errorf("frame index %d after reactivation", f.FrameIndex())
	}
	if err := f.Advance(in.dt, in.owner); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	again := rec.Last()

	for l := range first.Levels {
		for i := range first.Levels[l].Matrices {
			if first.Levels[l].Matrices[i] != again.Levels[l].Matrices[i] {
				t.Fatalf("level %d index %d differs after reactivation", l, i)
			}
		}
	}
}

func TestScaleLaw(t *testing.T) {
	f, rec := activated(t, testConfig(3))
	owner := DefaultOwner()
	owner.Scale = 2
	if err := f.Advance(0.5, owner); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	frame := rec.Last()
	for l, expected := range []float32{2, 1, 0.5} {
		for i, m := range frame.Levels[l].Matrices {
			if s := m.Col(0).Vec3().Len(); !mgl32.FloatEqualThreshold(s, expected, 1e-5) {
				t.Errorf("level %d index %d scale %v; expected %v", l, i, s, expected)
			}
		}
	}
}

func TestSpinMonotonic(t *testing.T) {
	f, _ := activated(t, testConfig(3))
	previous := make(map[[2]int]float32)
	for _, dt := range []float32{0.016, 0, 0.033, 0.5, 0, 0.001} {
		if err := f.Advance(dt, DefaultOwner()); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		for l, level := range f.Tree().Levels {
			for i, part := range level.Parts {
				key := [2]int{l, i}
				if part.SpinAngle < previous[key] {
					t.Fatalf("level %d index %d spin went back from %v to %v", l, i, previous[key], part.SpinAngle)
				}
				previous[key] = part.SpinAngle
			}
		}
	}
	expected := float32(config.DefaultSpinRate) * (0.016 + 0.033 + 0.5 + 0.001)
	if got := previous[[2]int{2, 17}]; !mgl32.FloatEqualThreshold(got, expected, 1e-5) {
		t.Errorf("spin %v; expected %v", got, expected)
	}
}

func TestChildrenAroundRoot(t *testing.T) {
	f, _ := activated(t, testConfig(2))
	if err := f.Advance(0, DefaultOwner()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	expected := []mgl32.Vec3{{0, 0.75, 0}, {0.75, 0, 0}, {-0.75, 0, 0}, {0, 0, 0.75}, {0, 0, -0.75}}
	for i, pos := range expected {
		part, err := f.Part(1, i)
		if err != nil {
			t.Fatalf("Part(1,%d): %v", i, err)
		}
		if !vecNear(part.WorldPosition, pos, 1e-6) {
			t.Errorf("child %d at %v; expected %v", i, part.WorldPosition, pos)
		}
	}
	if _, err := f.Part(1, 5); err == nil {
		t.Errorf("expected out of range error")
	}
	if _, err := f.Part(2, 0); err == nil {
		t.Errorf("expected level out of range error")
	}
}

func TestParentIndexStableAcrossFrames(t *testing.T) {
	f, _ := activated(t, testConfig(3))
	for _, in := range script(5) {
		if err := f.Advance(in.dt, in.owner); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		level := f.Tree().Levels[2]
		parents := f.Tree().Levels[1]
		for i, part := range level.Parts {
			parent := parents.Parts[ParentIndex(i)]
			expected := parent.WorldPosition.Add(parent.WorldRotation.Rotate(part.Direction.Mul(1.5 * LevelScale(1.5, 0.5, 2))))
			if !vecNear(part.WorldPosition, expected, 1e-4) {
				t.Fatalf("index %d is not positioned from parent %d", i, ParentIndex(i))
			}
		}
	}
}

func TestRendererErrorIsReturned(t *testing.T) {
	failing := errors.New("device lost")
	f := New(renderer.Func(func(*renderer.Frame) error { return failing }))
	if err := f.Activate(testConfig(2)); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	defer f.Deactivate()

	if err := f.Advance(0.016, DefaultOwner()); !errors.Is(err, failing) {
		t.Errorf("error %v; expected renderer error", err)
	}
}

func TestReconfigureChangesDepth(t *testing.T) {
	f, rec := activated(t, testConfig(2))
	f.Advance(0.016, DefaultOwner())

	if err := f.Reconfigure(testConfig(4)); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	if f.LevelCount() != 4 || f.storage.InUse() != NodeCount(4) {
		t.Errorf("levels %d in use %d", f.LevelCount(), f.storage.InUse())
	}
	f.Advance(0.016, DefaultOwner())
	if rec.Last().InstanceCount() != NodeCount(4) {
		t.Errorf("%d instances rendered", rec.Last().InstanceCount())
	}

	// invalid reconfiguration leaves the fractal inactive
	if err := f.Reconfigure(testConfig(-3)); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("error %v; expected invalid configuration", err)
	}
	if f.Active() || f.storage.InUse() != 0 {
		t.Errorf("tree kept after failed reconfigure")
	}
}

func TestActivateFillsDefaults(t *testing.T) {
	cfg := testConfig(2)
	cfg.Workers = 0
	cfg.BatchSize = 0
	f, _ := activated(t, cfg)
	if f.Config().Workers < 1 || f.Config().BatchSize != config.DefaultBatchSize {
		t.Errorf("defaults not filled: %+v", f.Config())
	}
}
