package gltfutils

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/fractal_browser/renderer"
)

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

// cube corners, unit size around origin
var cubePositions = [][3]float32{
	{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
	{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
}

var cubeIndices = []uint32{
	0, 2, 1, 0, 3, 2, // back
	4, 5, 6, 4, 6, 7, // front
	0, 1, 5, 0, 5, 4, // bottom
	3, 7, 6, 3, 6, 2, // top
	0, 4, 7, 0, 7, 3, // left
	1, 2, 6, 1, 6, 5, // right
}

// WriteCube adds a cube mesh standing in for the frame mesh handle
func WriteCube(doc *gltf.Document, name string, material uint32) uint32 {
	positionAccessor := modeler.WritePosition(doc, cubePositions)
	indicesAccessor := modeler.WriteIndices(doc, cubeIndices)

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{
			&gltf.Primitive{
				Indices:    gltf.Index(indicesAccessor),
				Attributes: map[string]uint32{"POSITION": positionAccessor},
				Material:   gltf.Index(material),
			},
		},
	})
	return uint32(len(doc.Meshes) - 1)
}

// ExportFrame makes a document with one shared mesh and a node per instance,
// grouped under a node per level
func ExportFrame(frame *renderer.Frame) *gltf.Document {
	doc := NewDocument()

	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        frame.Material,
		DoubleSided: true,
	})
	mesh := WriteCube(doc, frame.Mesh, uint32(len(doc.Materials)-1))

	root := &gltf.Node{Name: frame.Name}
	rootIndex := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, root)

	var levelNode *gltf.Node
	lastLevel := -1
	frame.Each(func(level, index int, m mgl32.Mat4) {
		if level != lastLevel {
			lastLevel = level
			levelNode = &gltf.Node{Name: fmt.Sprintf("level_%d", level)}
			root.Children = append(root.Children, uint32(len(doc.Nodes)))
			doc.Nodes = append(doc.Nodes, levelNode)
		}
		levelNode.Children = append(levelNode.Children, uint32(len(doc.Nodes)))
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:   fmt.Sprintf("part_%d_%d", level, index),
			Mesh:   gltf.Index(mesh),
			Matrix: m,
		})
	})

	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, rootIndex)
	return doc
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}
