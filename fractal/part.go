package fractal

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/fractal_browser/r3d"
)

const (
	BranchingFactor = 5
	MaxDepth        = 8
)

// Part is a single fractal node. Direction and LocalRotation are fixed at
// creation, the rest is rewritten every frame.
type Part struct {
	Direction     mgl32.Vec3
	LocalRotation mgl32.Quat
	WorldRotation mgl32.Quat
	WorldPosition mgl32.Vec3
	SpinAngle     float32
}

type paletteEntry struct {
	Direction mgl32.Vec3
	Rotation  mgl32.Quat
}

// indexed by child slot; each rotation turns local up into the slot direction
var palette = [BranchingFactor]paletteEntry{
	{r3d.AxisY, mgl32.QuatIdent()},
	{r3d.AxisX, r3d.RotateAroundAxis(r3d.AxisZ, mgl32.DegToRad(-90))},
	{r3d.AxisX.Mul(-1), r3d.RotateAroundAxis(r3d.AxisZ, mgl32.DegToRad(90))},
	{r3d.AxisZ, r3d.RotateAroundAxis(r3d.AxisX, mgl32.DegToRad(90))},
	{r3d.AxisZ.Mul(-1), r3d.RotateAroundAxis(r3d.AxisX, mgl32.DegToRad(-90))},
}

func Palette(slot int) (direction mgl32.Vec3, rotation mgl32.Quat) {
	e := &palette[slot]
	return e.Direction, e.Rotation
}

func NewPart(slot int) Part {
	direction, rotation := Palette(slot)
	return Part{
		Direction:     direction,
		LocalRotation: rotation,
		WorldRotation: mgl32.QuatIdent(),
	}
}

func ParentIndex(index int) int {
	return index / BranchingFactor
}

func ChildSlot(index int) int {
	return index % BranchingFactor
}
