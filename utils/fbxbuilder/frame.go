package fbxbuilder

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"

	"github.com/mogaika/fractal_browser/r3d"
	"github.com/mogaika/fractal_browser/renderer"
	"github.com/mogaika/fractal_browser/utils"
)

func (f *FBXBuilder) nullModel(name string) *fbx.Node {
	id := f.GenerateId()
	model := bfbx73.Model(id, name+"\x00\x01Model", "Null").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70(),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)
	nodeAttribute := bfbx73.NodeAttribute(f.GenerateId(), name+"\x00\x01NodeAttribute", "Null").AddNodes(
		bfbx73.TypeFlags("Null"),
	)

	f.AddConnections(bfbx73.C("OO", nodeAttribute.Properties[0].(int64), id))
	f.AddObjects(model, nodeAttribute)
	return model
}

func setLocalTransform(model *fbx.Node, m mgl32.Mat4) {
	pos, rot, scale := r3d.Decompose(m)
	rotation := utils.RadiansToDegreeV3(utils.QuatToEuler(rot))

	model.GetOrAddNode(bfbx73.Properties70()).AddNodes(
		bfbx73.P("Lcl Translation", "Lcl Translation", "", "A+",
			float64(pos[0]), float64(pos[1]), float64(pos[2])),
		bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A+",
			float64(rotation[0]), float64(rotation[1]), float64(rotation[2])),
		bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A+",
			float64(scale), float64(scale), float64(scale)),
	)
}

// ExportFrame builds a scene of null models, one per rendered instance,
// parented to a single root model named after the fractal.
// Matrices are already in world space so instances are not nested.
func ExportFrame(frame *renderer.Frame) *FBXBuilder {
	name := frame.Name
	if name == "" {
		name = "fractal"
	}
	f := NewFBXBuilder(name + ".fbx")

	root := f.nullModel(name)
	rootId := root.Properties[0].(int64)
	f.AddConnections(bfbx73.C("OO", rootId, int64(0)))

	frame.Each(func(level, index int, m mgl32.Mat4) {
		model := f.nullModel(fmt.Sprintf("part_%d_%d", level, index))
		setLocalTransform(model, m)
		f.AddConnections(bfbx73.C("OO", model.Properties[0].(int64), rootId))
	})

	return f
}
