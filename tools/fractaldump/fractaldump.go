package main

import (
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mogaika/fractal_browser/config"
	"github.com/mogaika/fractal_browser/host"
	"github.com/mogaika/fractal_browser/renderer"
	"github.com/mogaika/fractal_browser/utils"
	"github.com/mogaika/fractal_browser/utils/fbxbuilder"
	"github.com/mogaika/fractal_browser/utils/gltfutils"
)

func export(out string, cfg *config.Config, frame *renderer.Frame) error {
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "Failed to create %q", out)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(out)) {
	case ".glb":
		err = gltfutils.ExportBinary(f, gltfutils.ExportFrame(frame))
	case ".fbx":
		err = fbxbuilder.ExportFrame(frame).Write(f)
	case ".yaml", ".yml":
		err = cfg.Encode(f)
	default:
		err = errors.Errorf("Unknown output format %q", filepath.Ext(out))
	}
	if err != nil {
		return errors.Wrapf(err, "Failed to export %q", out)
	}
	return f.Close()
}

// newRenderer records frames and also dumps each one to w when w is set
func newRenderer(rec *renderer.Recorder, w io.Writer) renderer.Renderer {
	if w == nil {
		return rec
	}
	return renderer.Multi(rec, renderer.Func(func(frame *renderer.Frame) error {
		utils.FDump(w, frame)
		return nil
	}))
}

func main() {
	var configPath, out string
	var frames int
	var dt time.Duration
	var dump bool
	flag.StringVar(&configPath, "config", "", "Path to yaml config")
	flag.IntVar(&frames, "frames", 1, "Frames to advance before export")
	flag.DurationVar(&dt, "dt", time.Second/60, "Delta time of one frame")
	flag.StringVar(&out, "out", "", "Output file (.glb, .fbx or .yaml)")
	flag.BoolVar(&dump, "spew", false, "Dump every frame to stdout")
	flag.Parse()

	if out == "" && !dump {
		flag.PrintDefaults()
		return
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatal(err)
		}
	} else {
		cfg.Fractal.FillName()
	}

	rec := renderer.NewRecorder()
	var dumpTo io.Writer
	if dump {
		dumpTo = os.Stdout
	}
	h := host.New(cfg, newRenderer(rec, dumpTo))
	if err := h.Start(); err != nil {
		log.Fatal(err)
	}
	defer h.Stop()

	for i := 0; i < frames; i++ {
		if err := h.Step(dt); err != nil {
			log.Fatalf("Frame %d: %v", i, err)
		}
	}

	frame := rec.Last()
	if frame == nil {
		log.Fatalf("No frames rendered, -frames must be positive")
	}
	log.Printf("[fractaldump] %q: %d frames, %d instances", frame.Name, frame.Index, frame.InstanceCount())

	if out != "" {
		if err := export(out, cfg, frame); err != nil {
			log.Fatal(err)
		}
		log.Printf("[fractaldump] Saved %q", out)
	}
}
