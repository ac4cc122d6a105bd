package host

import (
	"context"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/fractal_browser/config"
	"github.com/mogaika/fractal_browser/fractal"
	"github.com/mogaika/fractal_browser/renderer"
)

// absolute tolerance, mgl32 approx helpers go relative or squared near zero
func vecNear(a, b mgl32.Vec3, eps float32) bool {
	return a.Sub(b).Len() < eps
}

func testConfig(depth int) *config.Config {
	cfg := config.Default()
	cfg.Fractal.Name = "fern"
	cfg.Fractal.Depth = depth
	cfg.Fractal.Workers = 1
	return cfg
}

func TestStepRendersFrames(t *testing.T) {
	rec := renderer.NewRecorder()
	h := New(testConfig(3), rec)
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Stop()

	for i := 0; i < statusEveryFrames; i++ {
		if err := h.Step(time.Second / 60); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if rec.Frames() != statusEveryFrames {
		t.Errorf("%d frames recorded; expected %d", rec.Frames(), statusEveryFrames)
	}
	if last := rec.Last(); last.InstanceCount() != fractal.NodeCount(3) {
		t.Errorf("%d instances; expected %d", last.InstanceCount(), fractal.NodeCount(3))
	}
}

func TestStepInactive(t *testing.T) {
	h := New(testConfig(2), nil)

	err := h.Step(time.Second / 60)
	if !errors.Is(err, fractal.ErrNotActivated) {
		t.Errorf("Step before Start: %v; expected ErrNotActivated", err)
	}
}

func TestOwnerYaw(t *testing.T) {
	cfg := testConfig(1)
	cfg.Owner.Position = [3]float32{1, 2, 3}
	cfg.Owner.Scale = 2
	cfg.Owner.YawRate = 90

	rec := renderer.NewRecorder()
	h := New(cfg, rec)
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Stop()

	if err := h.Step(time.Second); err != nil {
		t.Fatalf("Step: %v", err)
	}

	owner := h.Owner()
	if !vecNear(owner.Position, mgl32.Vec3{1, 2, 3}, 1e-6) || owner.Scale != 2 {
		t.Errorf("owner %+v", owner)
	}
	// 90 degrees of yaw turns +X into -Z
	if v := owner.Rotation.Rotate(mgl32.Vec3{1, 0, 0}); !vecNear(v, mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("yawed X is %v; expected -Z", v)
	}

	root, err := h.Part(0, 0)
	if err != nil {
		t.Fatalf("Part: %v", err)
	}
	if !vecNear(root.WorldPosition, mgl32.Vec3{1, 2, 3}, 1e-6) {
		t.Errorf("root at %v; expected owner position", root.WorldPosition)
	}

	// yaw wraps instead of growing
	for i := 0; i < 5; i++ {
		if err := h.Step(time.Second); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if h.yaw < 0 || h.yaw >= 360 {
		t.Errorf("yaw %v out of [0, 360)", h.yaw)
	}
}

func TestReconfigureFailureKeepsConfig(t *testing.T) {
	h := New(testConfig(2), nil)
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Stop()

	bad := config.DefaultFractal()
	bad.Mesh = ""
	names := config.GeneratedNames()
	err := h.Reconfigure(bad)
	if !errors.Is(err, fractal.ErrInvalidConfiguration) {
		t.Fatalf("Reconfigure: %v; expected ErrInvalidConfiguration", err)
	}
	if h.Active() {
		t.Errorf("fractal is active after rejected config")
	}
	if h.Config().Fractal.Depth != 2 {
		t.Errorf("config changed to %+v", h.Config().Fractal)
	}
	if config.GeneratedNames() != names {
		t.Errorf("rejected config took a generated name")
	}

	good := config.DefaultFractal()
	good.Depth = 1
	good.Workers = 1
	if err := h.Reconfigure(good); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}
	if cfg := h.Config().Fractal; cfg.Name == "" || cfg.Depth != 1 {
		t.Errorf("config %+v; expected generated name and depth 1", cfg)
	}
}

func TestRunSkipsInactive(t *testing.T) {
	cfg := testConfig(1)
	cfg.FPS = 200
	h := New(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := h.Run(ctx); err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestRunStopsOnRenderError(t *testing.T) {
	cfg := testConfig(1)
	cfg.FPS = 200
	failure := errors.New("device lost")
	h := New(cfg, renderer.Func(func(*renderer.Frame) error { return failure }))
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer h.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Run(ctx); !errors.Is(err, failure) {
		t.Errorf("Run: %v; expected render failure", err)
	}
}
