package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

func sampleFrame() *Frame {
	return &Frame{
		Index: 7,
		Mesh:  "cube",
		Levels: []Batch{
			{Matrices: []mgl32.Mat4{mgl32.Ident4()}, Count: 1},
			{Matrices: []mgl32.Mat4{mgl32.Translate3D(1, 0, 0), mgl32.Translate3D(2, 0, 0)}, Count: 2},
		},
	}
}

func TestFrameClone(t *testing.T) {
	f := sampleFrame()
	c := f.Clone()

	f.Levels[1].Matrices[0] = mgl32.Translate3D(9, 9, 9)
	if c.Levels[1].Matrices[0] != mgl32.Translate3D(1, 0, 0) {
		t.Errorf("clone aliases source matrices")
	}
	if c.InstanceCount() != 3 || c.Index != 7 || c.Mesh != "cube" {
		t.Errorf("clone %+v", c)
	}
}

func TestFrameEach(t *testing.T) {
	var visited [][2]int
	sampleFrame().Each(func(level, index int, m mgl32.Mat4) {
		visited = append(visited, [2]int{level, index})
	})
	expected := [][2]int{{0, 0}, {1, 0}, {1, 1}}
	if len(visited) != len(expected) {
		t.Fatalf("visited %v", visited)
	}
	for i := range expected {
		if visited[i] != expected[i] {
			t.Errorf("visited[%d]=%v; expected %v", i, visited[i], expected[i])
		}
	}
}

func TestMultiStopsOnError(t *testing.T) {
	var calls []int
	failing := errors.New("upload failed")
	track := func(id int, err error) Renderer {
		return Func(func(*Frame) error {
			calls = append(calls, id)
			return err
		})
	}

	err := Multi(track(0, nil), track(1, failing), track(2, nil)).Render(sampleFrame())
	if !errors.Is(err, failing) {
		t.Errorf("error %v; expected wrapped %v", err, failing)
	}
	if len(calls) != 2 {
		t.Errorf("calls %v; expected [0 1]", calls)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	if r.Last() != nil {
		t.Fatalf("empty recorder returned frame")
	}
	f := sampleFrame()
	if err := r.Render(f); err != nil {
		t.Fatalf("Render: %v", err)
	}
	f.Levels[0].Matrices[0] = mgl32.Scale3D(2, 2, 2)

	last := r.Last()
	if last == nil || last.Levels[0].Matrices[0] != mgl32.Ident4() {
		t.Errorf("recorder kept aliasing frame: %+v", last)
	}
	if r.Frames() != 1 {
		t.Errorf("Frames()=%d", r.Frames())
	}
	r.Reset()
	if r.Last() != nil || r.Frames() != 0 {
		t.Errorf("Reset did not clear recorder")
	}
}
