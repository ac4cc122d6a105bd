package fractal

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/fractal_browser/r3d"
)

// distance from parent to child in child scale units
const childOffset = 1.5

// Owner is the transform of the object the fractal is attached to.
// Scale is the lossy scale along X.
type Owner struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    float32
}

func DefaultOwner() Owner {
	return Owner{Rotation: mgl32.QuatIdent(), Scale: 1}
}

// LevelScale is objectScale * scaleFactor^level, multiplied step by step
func LevelScale(objectScale, scaleFactor float32, level int) float32 {
	scale := objectScale
	for i := 0; i < level; i++ {
		scale *= scaleFactor
	}
	return scale
}

func spin(part *Part, spinAngleDelta float32) mgl32.Quat {
	part.SpinAngle += spinAngleDelta
	return part.LocalRotation.Mul(r3d.RotateAroundAxis(r3d.AxisY, part.SpinAngle))
}

func updateRoot(root *Part, matrix *mgl32.Mat4, spinAngleDelta float32, owner Owner) {
	root.WorldRotation = owner.Rotation.Mul(spin(root, spinAngleDelta))
	root.WorldPosition = owner.Position
	*matrix = r3d.Compose(root.WorldPosition, root.WorldRotation, owner.Scale)
}

// levelJob updates one level from its already updated parent level.
// Every index reads only its parent and writes only itself, so disjoint
// ranges can run at the same time.
type levelJob struct {
	parents  []Part
	parts    []Part
	matrices []mgl32.Mat4

	spinAngleDelta float32
	scale          float32
}

func (j *levelJob) execute(start, end int) {
	offset := childOffset * j.scale
	for i := start; i < end; i++ {
		parent := &j.parents[ParentIndex(i)]
		part := &j.parts[i]

		part.WorldRotation = parent.WorldRotation.Mul(spin(part, j.spinAngleDelta))
		// position is rebuilt from the parent every frame, previous value is dropped
		part.WorldPosition = parent.WorldPosition.Add(
			parent.WorldRotation.Rotate(part.Direction.Mul(offset)))

		j.matrices[i] = r3d.Compose(part.WorldPosition, part.WorldRotation, j.scale)
	}
}
