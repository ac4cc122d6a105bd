package host

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/fractal_browser/config"
	"github.com/mogaika/fractal_browser/fractal"
	"github.com/mogaika/fractal_browser/r3d"
	"github.com/mogaika/fractal_browser/renderer"
	"github.com/mogaika/fractal_browser/status"
	"github.com/mogaika/fractal_browser/utils"
)

// how often frame statistics go to status listeners
const statusEveryFrames = 60

// Host plays the role of the object owning the fractal: it drives the
// lifecycle, supplies delta time and its own transform every frame.
// All calls are serialized, so a reconfiguration never interleaves with a frame.
type Host struct {
	mu sync.Mutex

	cfg     config.Config
	fractal *fractal.Fractal
	yaw     float32 // degrees, accumulated from Owner.YawRate
}

func New(cfg *config.Config, r renderer.Renderer) *Host {
	return &Host{
		cfg:     *cfg,
		fractal: fractal.New(r),
	}
}

func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.fractal.Activate(h.cfg.Fractal); err != nil {
		status.Error("Failed to activate %q: %v", h.cfg.Fractal.Name, err)
		return err
	}
	status.Info("Fractal %q activated with depth %d", h.cfg.Fractal.Name, h.cfg.Fractal.Depth)
	return nil
}

func (h *Host) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fractal.Deactivate()
}

// Reconfigure replaces the fractal section of the config. When the new
// config is rejected the fractal stays inactive until the next Reconfigure.
func (h *Host) Reconfigure(cfg config.Fractal) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// rejected configs do not take a generated name
	if fractal.Validate(&cfg) == nil {
		cfg.FillName()
	}
	if err := h.fractal.Reconfigure(cfg); err != nil {
		log.Printf("[host] Reconfigure failed: %v\n%s", err, utils.SDump(cfg))
		status.Error("Failed to reconfigure %q: %v", cfg.Name, err)
		return err
	}
	h.cfg.Fractal = cfg
	status.Info("Fractal %q reconfigured to depth %d", cfg.Name, cfg.Depth)
	return nil
}

// Owner is the owner transform for the current yaw
func (h *Host) Owner() fractal.Owner {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.owner()
}

func (h *Host) owner() fractal.Owner {
	o := h.cfg.Owner
	base := utils.EulerToQuat(utils.DegreeToRadiansV3(mgl32.Vec3(o.Rotation)))
	return fractal.Owner{
		Position: mgl32.Vec3(o.Position),
		Rotation: r3d.RotateAroundAxis(r3d.AxisY, mgl32.DegToRad(h.yaw)).Mul(base),
		Scale:    o.Scale,
	}
}

// Step advances one frame by dt
func (h *Host) Step(dt time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	seconds := float32(dt.Seconds())
	h.yaw = float32(math.Mod(float64(h.yaw+h.cfg.Owner.YawRate*seconds), 360))

	if err := h.fractal.Advance(seconds, h.owner()); err != nil {
		return errors.Wrapf(err, "Failed to advance")
	}

	if frame := h.fractal.FrameIndex(); frame%statusEveryFrames == 0 {
		status.Progress(float32(frame%3600)/3600,
			"Frame %d: %d levels, %d nodes", frame, h.fractal.LevelCount(), fractal.NodeCount(h.fractal.LevelCount()))
	}
	return nil
}

// Run steps at the configured rate until ctx is done. An inactive fractal
// (after a rejected reconfigure) is skipped, other errors stop the loop.
func (h *Host) Run(ctx context.Context) error {
	fps := h.Config().FPS
	if fps <= 0 {
		fps = config.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	last := time.Now()
	log.Printf("[host] Running at %d fps", fps)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := h.Step(dt); err != nil {
				if errors.Is(err, fractal.ErrNotActivated) {
					continue
				}
				log.Printf("[host] Stopped: %v", err)
				status.Error("Frame loop stopped: %v", err)
				return err
			}
		}
	}
}

func (h *Host) Config() config.Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

func (h *Host) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fractal.Active()
}

// Part reads one node of the live tree
func (h *Host) Part(level, index int) (fractal.Part, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fractal.Part(level, index)
}
