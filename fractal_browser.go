package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mogaika/fractal_browser/config"
	"github.com/mogaika/fractal_browser/host"
	"github.com/mogaika/fractal_browser/renderer"
	"github.com/mogaika/fractal_browser/web"
)

func main() {
	var addr, configPath string
	var depth, fps int
	flag.StringVar(&configPath, "config", "", "Path to yaml config")
	flag.StringVar(&addr, "i", "", "Address of server, overrides config")
	flag.IntVar(&depth, "depth", -1, "Fractal depth, overrides config")
	flag.IntVar(&fps, "fps", 0, "Frames per second, overrides config")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatal(err)
		}
	} else {
		cfg.Fractal.FillName()
	}
	if addr != "" {
		cfg.Listen = addr
	}
	if depth >= 0 {
		cfg.Fractal.Depth = depth
	}
	if fps > 0 {
		cfg.FPS = fps
	}

	rec := renderer.NewRecorder()
	h := host.New(cfg, rec)
	if err := h.Start(); err != nil {
		log.Fatal(err)
	}
	defer h.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.Run(ctx)
	})
	g.Go(func() error {
		return web.StartServer(ctx, cfg.Listen, h, rec)
	})

	if err := g.Wait(); err != nil {
		log.Printf("[main] %v", err)
	}
}
