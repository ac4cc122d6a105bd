package web

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mogaika/fractal_browser/config"
	"github.com/mogaika/fractal_browser/fractal"
	"github.com/mogaika/fractal_browser/r3d"
	"github.com/mogaika/fractal_browser/renderer"
	"github.com/mogaika/fractal_browser/utils"
	"github.com/mogaika/fractal_browser/utils/fbxbuilder"
	"github.com/mogaika/fractal_browser/utils/gltfutils"
	"github.com/mogaika/fractal_browser/webutils"
)

// default inspector camera angles, degrees
const (
	viewPitch = 25
	viewYaw   = 45
)

// reconfigure body limit, a fractal section is a few lines of yaml
const maxConfigBody = 64 << 10

var errNoFrame = errors.New("No frame rendered yet")

type jsonFrame struct {
	Index     uint64          `json:"index"`
	Name      string          `json:"name"`
	Mesh      string          `json:"mesh"`
	Material  string          `json:"material"`
	Levels    []int           `json:"levels"`
	Instances int             `json:"instances"`
	Bounds    renderer.Bounds `json:"bounds"`
	View      mgl32.Mat4      `json:"view"`
}

type jsonNode struct {
	Level         int        `json:"level"`
	Index         int        `json:"index"`
	Parent        int        `json:"parent"`
	Slot          int        `json:"slot"`
	Direction     mgl32.Vec3 `json:"direction"`
	LocalRotation mgl32.Quat `json:"local_rotation"`
	WorldRotation mgl32.Quat `json:"world_rotation"`
	WorldPosition mgl32.Vec3 `json:"world_position"`
	SpinAngle     float32    `json:"spin_angle"`
}

func lastFrame(w http.ResponseWriter) *renderer.Frame {
	frame := ServerRecorder.Last()
	if frame == nil {
		webutils.WriteErrorCode(w, http.StatusNotFound, errNoFrame)
	}
	return frame
}

func intVar(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, errors.Errorf("param %q is not integer", name)
	}
	return v, nil
}

func HandlerJsonConfig(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, ServerHost.Config())
}

func HandlerJsonFrame(w http.ResponseWriter, r *http.Request) {
	frame := lastFrame(w)
	if frame == nil {
		return
	}

	var bbox r3d.BBox
	frame.Each(func(level, index int, m mgl32.Mat4) {
		bbox.ExpandToPoint(m.Col(3).Vec3())
	})

	levels := make([]int, len(frame.Levels))
	for i, b := range frame.Levels {
		levels[i] = b.Count
	}

	webutils.WriteJson(w, &jsonFrame{
		Index:     frame.Index,
		Name:      frame.Name,
		Mesh:      frame.Mesh,
		Material:  frame.Material,
		Levels:    levels,
		Instances: frame.InstanceCount(),
		Bounds:    frame.Bounds,
		View:      r3d.NewOrbitForBBox(&bbox, viewPitch, viewYaw).GetViewMatrix(),
	})
}

func HandlerJsonFrameLevel(w http.ResponseWriter, r *http.Request) {
	level, err := intVar(r, "level")
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	frame := lastFrame(w)
	if frame == nil {
		return
	}
	if level < 0 || level >= len(frame.Levels) {
		webutils.WriteErrorCode(w, http.StatusNotFound,
			errors.Errorf("level %d is out of range [0, %d)", level, len(frame.Levels)))
		return
	}
	webutils.WriteJson(w, frame.Levels[level].Matrices)
}

func HandlerJsonNode(w http.ResponseWriter, r *http.Request) {
	level, err := intVar(r, "level")
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	index, err := intVar(r, "index")
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}

	part, err := ServerHost.Part(level, index)
	if err != nil {
		code := http.StatusNotFound
		if errors.Is(err, fractal.ErrNotActivated) {
			code = http.StatusConflict
		}
		webutils.WriteErrorCode(w, code, err)
		return
	}

	parent := -1
	if level > 0 {
		parent = fractal.ParentIndex(index)
	}
	webutils.WriteJson(w, &jsonNode{
		Level:         level,
		Index:         index,
		Parent:        parent,
		Slot:          fractal.ChildSlot(index),
		Direction:     part.Direction,
		LocalRotation: part.LocalRotation,
		WorldRotation: part.WorldRotation,
		WorldPosition: part.WorldPosition,
		SpinAngle:     part.SpinAngle,
	})
}

func HandlerActionReconfigure(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigBody))
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusRequestEntityTooLarge, errors.Wrapf(err, "Failed to read body"))
		return
	}

	cfg, err := config.DecodeFractal(bytes.NewReader(body))
	if err != nil {
		webutils.WriteErrorCode(w, http.StatusBadRequest, err)
		return
	}
	if err := ServerHost.Reconfigure(cfg); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, fractal.ErrInvalidConfiguration) {
			code = http.StatusBadRequest
		} else if errors.Is(err, fractal.ErrAllocationFailure) {
			code = http.StatusInsufficientStorage
		}
		webutils.WriteErrorCode(w, code, err)
		return
	}
	webutils.WriteJson(w, ServerHost.Config().Fractal)
}

func HandlerDumpFrameGlb(w http.ResponseWriter, r *http.Request) {
	frame := lastFrame(w)
	if frame == nil {
		return
	}
	var buf bytes.Buffer
	if err := gltfutils.ExportBinary(&buf, gltfutils.ExportFrame(frame)); err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to export gltf"))
		return
	}
	webutils.WriteFile(w, &buf, frame.Name+".glb")
}

func HandlerDumpFrameFbx(w http.ResponseWriter, r *http.Request) {
	frame := lastFrame(w)
	if frame == nil {
		return
	}
	var buf bytes.Buffer
	if err := fbxbuilder.ExportFrame(frame).Write(&buf); err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to export fbx"))
		return
	}
	webutils.WriteFile(w, &buf, frame.Name+".fbx")
}

func HandlerDumpFrameText(w http.ResponseWriter, r *http.Request) {
	frame := lastFrame(w)
	if frame == nil {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	utils.FDump(w, frame)
}

func HandlerDumpConfig(w http.ResponseWriter, r *http.Request) {
	cfg := ServerHost.Config()
	webutils.WriteYamlFile(w, &cfg, "config.yaml")
}
